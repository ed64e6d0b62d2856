//go:build darwin

package cos

import (
	"os"
	"syscall"
)

func statAttrs(fi os.FileInfo) FileAttrs {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return FileAttrs{Size: fi.Size(), Mtime: Mtime{Sec: fi.ModTime().Unix(), Nsec: int64(fi.ModTime().Nanosecond())}}
	}
	return FileAttrs{
		Device: uint64(st.Dev),
		Inode:  st.Ino,
		Size:   fi.Size(),
		Mtime:  Mtime{Sec: int64(st.Mtimespec.Sec), Nsec: int64(st.Mtimespec.Nsec)},
	}
}
