// Reactor runs discrete-event simulations of reaction networks.
package main

import "github.com/sarchlab/reactor/reactor/cmd"

func main() {
	cmd.Execute()
}
