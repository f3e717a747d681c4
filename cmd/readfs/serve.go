/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 13:50:33 2019 mstenber
 * Last modified: Wed Mar 20 14:02:10 2019 mstenber
 * Edit time:     8 min
 *
 */

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fingon/go-readfs/server"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func waitSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	signal.Stop(ch)
}

func init() {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the image in the configured backend to remote backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := openBackend()
			if err != nil {
				return err
			}
			serv, err := server.Server{Address: listen, Backend: be}.Init()
			if err != nil {
				return multierr.Append(err, be.Close())
			}
			log.Printf("Serving at %v", serv.Addr())
			waitSignal()
			return multierr.Combine(serv.Close(), be.Close())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":5431", "Address to listen at")
	rootCmd.AddCommand(cmd)
}
