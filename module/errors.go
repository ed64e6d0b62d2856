package module

import "github.com/sprocd/sprocd/cmn/cos"

func errBadSymbolType(name string) error {
	return cos.NewLoadFunction("symbol "+name+" has the wrong signature", nil)
}
