package main

import (
	"os"

	"github.com/spf13/cobra"

	chatcmder "github.com/phoebemtg/lifestring-sub000/cmd/lifestring/chat"
	servecmder "github.com/phoebemtg/lifestring-sub000/cmd/lifestring/serve"
)

func main() {
	root := &cobra.Command{
		Use:           "lifestring",
		Short:         "Lifestring assistant gateway and terminal chat client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(servecmder.NewServeCmd())
	root.AddCommand(chatcmder.NewChatCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
