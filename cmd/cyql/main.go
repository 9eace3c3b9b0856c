// Command cyql is a command-line front end for the Cypher-to-SQL
// translation pipeline.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("cyql failed")
		os.Exit(1)
	}
}
