package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/lastword/internal/client/cli"
)

func main() {

	encrypt := flag.Bool("encrypt", false, "encrypt a secret into an envelope")
	decrypt := flag.Bool("decrypt", false, "decrypt a claim payload")
	in := flag.String("in", "", "input file (plaintext for -encrypt, claim JSON for -decrypt)")
	out := flag.String("out", "", "output file for -encrypt (default stdout)")
	flag.Parse()

	app := cli.NewApp()

	var err error
	switch {
	case *encrypt && !*decrypt:
		err = app.Encrypt(*in, *out)
	case *decrypt && !*encrypt:
		err = app.Decrypt(*in)
	default:
		fmt.Fprintln(os.Stderr, "usage: specify exactly one of -encrypt or -decrypt")
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
