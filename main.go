package main

import (
	"os"

	"github.com/zhengshuai-xiao/xbackup/cmd"
	"github.com/zhengshuai-xiao/xbackup/internal"
)

var logger = internal.GetLogger("xbackup_main")

func main() {
	err := cmd.Main(os.Args)
	if err != nil {
		logger.Fatal(err)
	}
}
