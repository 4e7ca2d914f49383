package main

import (
	"github.com/witml/witbuild/cmdline"
)

func main() {
	cmdline.MustDispatch(
		buildCmd,
		splitsCmd,
	)
}
