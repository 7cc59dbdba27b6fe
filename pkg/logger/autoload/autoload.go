// Package autoload configures the global logger from LOG_* environment
// variables as a side effect of being imported.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/wilfredeveloper/mypa/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		logx.Init()
		return
	}
	logx.Init(conf)
}
