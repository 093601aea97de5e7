// Command potlottery operates a pooled-stake lottery ledger: it takes
// entries, asks the signing oracle for randomness, pays the winner and
// keeps the round history.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
