// rawdict 用于查看与转换编码记录文件。
package main

import (
	"os"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/lk2023060901/ringercore-go/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error("rawdict failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}
