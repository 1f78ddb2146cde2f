package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"otpvault/cli"
	"otpvault/config"
	"otpvault/logging"
	"otpvault/model"
	"otpvault/vault"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.otpvault/config.yaml)")
	flag.Parse()

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error setting up logging:", err)
		os.Exit(1)
	}
	defer log.Sync()

	store := vault.NewStore(cfg.VaultPath)
	params := vault.Params{Time: cfg.KDF.Time, Memory: cfg.KDF.Memory, Threads: cfg.KDF.Threads}
	core := model.New(store, params, log)
	defer core.Close()

	if args := flag.Args(); len(args) == 2 && args[0] == "import" {
		if err := runImport(core, args[1]); err != nil {
			fmt.Fprintln(os.Stderr, "Import failed:", err)
			os.Exit(1)
		}
		return
	}

	if err := cli.Run(core, cfg); err != nil {
		log.Error("TUI exited with error", zap.Error(err))
		os.Exit(1)
	}
}

// runImport is the one-shot, non-TUI path: unlock, import, flush, report.
func runImport(core *model.Model, path string) error {
	prompt := "Enter master password: "
	if core.FirstTime() {
		prompt = "Set master password: "
	}
	password := cli.ReadPasswordMasked(prompt)
	defer vault.Zero(password)

	if err := <-core.Unlock(string(password)); err != nil {
		return err
	}

	count, err := core.ImportFromFile(path)
	if err != nil {
		return err
	}
	if err := core.Flush(); err != nil {
		return err
	}
	fmt.Printf("Imported %d entries.\n", count)
	return nil
}
