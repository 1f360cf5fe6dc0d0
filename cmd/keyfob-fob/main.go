// keyfob-fob runs the fob firmware against two serial links: one to the
// host PC and one to the peer board (another fob while pairing, the car
// while unlocking). Pressing Enter on stdin stands in for the unlock
// button.
//
// Provisioning comes from a YAML file and/or flags:
//
//	keyfob-fob --config provision.yaml
//	keyfob-fob --host /dev/ttyUSB0 --board /dev/ttyUSB1 --paired \
//	    --car-id <32 hex> --pair-pin <32 hex> --car-secret <32 hex> \
//	    --pin-key <48 hex> --feature-key <48 hex> --state fob-state.bin
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/pion/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/electro707/keyfob/pkg/device"
	"github.com/electro707/keyfob/pkg/transport"
)

// stdinButton turns stdin lines into debounced unlock presses. The
// reader goroutine sets the flag; the polling loop consumes it.
type stdinButton struct {
	pressed atomic.Bool
}

func (b *stdinButton) watch() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		b.pressed.Store(true)
	}
}

func (b *stdinButton) Pressed() bool {
	return b.pressed.Swap(false)
}

// hexArray decodes a fixed-size hex string from configuration.
func hexArray(dst []byte, key string) error {
	value := viper.GetString(key)
	if value == "" {
		return nil
	}
	raw, err := hex.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%s: got %d bytes, want %d", key, len(raw), len(dst))
	}
	copy(dst, raw)
	return nil
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyfob-fob",
		Short: "Key fob firmware over serial links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFob()
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.String("config", "", "provisioning file (YAML)")
	flags.String("host", "", "host UART device path")
	flags.String("board", "", "board UART device path")
	flags.Int("baud", transport.DefaultBaudRate, "UART baud rate")
	flags.Bool("paired", false, "factory-paired build")
	flags.String("car-id", "", "car ID (32 hex chars)")
	flags.String("pair-pin", "", "encrypted pairing PIN (32 hex chars)")
	flags.String("car-secret", "", "car unlock secret (32 hex chars)")
	flags.String("pin-key", "", "PIN encryption key (48 hex chars)")
	flags.String("feature-key", "", "feature encryption key (48 hex chars)")
	flags.String("state", "fob-state.bin", "persistent state file")

	for _, name := range []string{"host", "board", "baud", "paired", "car-id", "pair-pin", "car-secret", "pin-key", "feature-key", "state"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	cobra.OnInitialize(func() {
		if path, _ := flags.GetString("config"); path != "" {
			viper.SetConfigFile(path)
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "config: %v\n", err)
				os.Exit(1)
			}
		}
	})

	return cmd
}

func runFob() error {
	hostPath := viper.GetString("host")
	boardPath := viper.GetString("board")
	if hostPath == "" || boardPath == "" {
		return fmt.Errorf("both --host and --board serial devices are required")
	}
	baud := viper.GetInt("baud")

	hostPort, err := transport.OpenSerial(hostPath, baud)
	if err != nil {
		return err
	}
	defer hostPort.Close()

	boardPort, err := transport.OpenSerial(boardPath, baud)
	if err != nil {
		return err
	}
	defer boardPort.Close()

	button := &stdinButton{}
	go button.watch()

	cfg := device.Config{
		Role:          device.RoleFob,
		HostPort:      hostPort,
		BoardPort:     boardPort,
		Paired:        viper.GetBool("paired"),
		Store:         device.NewFileStore(viper.GetString("state")),
		Button:        button,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	}
	if err := hexArray(cfg.CarID[:], "car-id"); err != nil {
		return err
	}
	if err := hexArray(cfg.PairPIN[:], "pair-pin"); err != nil {
		return err
	}
	if err := hexArray(cfg.CarSecret[:], "car-secret"); err != nil {
		return err
	}
	if err := hexArray(cfg.PINKey[:], "pin-key"); err != nil {
		return err
	}
	if err := hexArray(cfg.FeatureKey[:], "feature-key"); err != nil {
		return err
	}

	dev, err := device.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dev.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
