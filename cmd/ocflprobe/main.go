package main

import (
	"os"

	"ocflprobe/cmd/ocflprobe/commands"
)

func main() {
	// 错误已经在命令内部记录过日志
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
