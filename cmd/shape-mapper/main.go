// Command shape-mapper maps JSON, YAML, CSV and XML documents into new shapes
// described by declarative YAML rule files.
//
//	shape-mapper run -m order.yaml -i 'orders/**/*.json' -o receipts
//	shape-mapper validate mappings/*.yaml
//	shape-mapper functions
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
