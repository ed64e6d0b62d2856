//go:build !linux && !darwin

package cos

import "os"

// Generic fallback: no device/inode available, size+mtime only. Good
// enough to detect truncate/rewrite, not rename-and-swap-by-inode.
func statAttrs(fi os.FileInfo) FileAttrs {
	return FileAttrs{
		Size:  fi.Size(),
		Mtime: Mtime{Sec: fi.ModTime().Unix(), Nsec: int64(fi.ModTime().Nanosecond())},
	}
}
