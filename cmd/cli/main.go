// logreader - Access Log Reader
//
// logreader parses Apache/NGINX access logs into structured records using
// Apache LogFormat strings.
package main

import (
	"os"

	"github.com/ccollicutt/logreader/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
