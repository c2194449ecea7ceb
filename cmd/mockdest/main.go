// Command mockdest runs a standalone mock destination endpoint.
package main

import (
	"context"
	"flag"

	"github.com/webhookhub/webhookhub/internal/mockdest"
)

var port = flag.Int("port", 5555, "Port to listen on")

func main() {
	flag.Parse()
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	server := mockdest.New(mockdest.Config{
		Port: *port,
	})
	return server.Run(context.Background())
}
