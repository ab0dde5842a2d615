package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/finetune/server"
)

func main() {
	parser := argparse.NewParser("finetune", "Dataset partitioning and fine-tuning server for image classifiers")
	configFilePath := parser.String("c", "config", &argparse.Options{Help: "Config file path", Default: "finetune.json"})
	port := parser.Int("p", "port", &argparse.Options{Help: "HTTP listen port", Default: 8099})
	hotReloadWWW := parser.Flag("", "hot", &argparse.Options{Help: "Hot reload www instead of embedding into binary", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	s, err := server.NewServer(*configFilePath, *hotReloadWWW)
	if err != nil {
		panic(err)
	}
	s.ListenForKillSignals()
	daemon.SdNotify(false, daemon.SdNotifyReady)
	if err := s.ListenHTTP(fmt.Sprintf(":%v", *port)); err != nil {
		fmt.Printf("%v\n", err)
	}
}
