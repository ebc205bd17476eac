package main

import "github.com/frahmantamala/wallet-payments/cmd"

func main() {
	cmd.Execute()
}
