// elph-bridge connects a UCI chess GUI to an ELPH chess computer on a serial port.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// A GUI that goes away must surface as a write error, not kill the process.
	signal.Ignore(syscall.SIGPIPE)

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
