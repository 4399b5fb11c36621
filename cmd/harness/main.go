// Command harness runs the browser tests and reports them.
package main

import "digital.vasic.harness/pkg/cli"

func main() {
	cli.Execute()
}
