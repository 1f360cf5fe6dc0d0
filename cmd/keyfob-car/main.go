// keyfob-car runs the car firmware: it services unlock attempts on the
// board UART and writes banners to the host UART.
//
//	keyfob-car --config provision.yaml
//	keyfob-car --host /dev/ttyUSB0 --board /dev/ttyUSB1 \
//	    --car-id <32 hex> --eeprom car-eeprom.bin
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pion/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/electro707/keyfob/pkg/device"
	"github.com/electro707/keyfob/pkg/transport"
)

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
		Use:   "keyfob-car",
		Short: "Car firmware over serial links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCar()
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.String("config", "", "provisioning file (YAML)")
	flags.String("host", "", "host UART device path")
	flags.String("board", "", "board UART device path")
	flags.Int("baud", transport.DefaultBaudRate, "UART baud rate")
	flags.String("car-id", "", "car ID / unlock secret (32 hex chars)")
	flags.String("eeprom", "car-eeprom.bin", "EEPROM image file")

	for _, name := range []string{"host", "board", "baud", "car-id", "eeprom"} {
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

func runCar() error {
	hostPath := viper.GetString("host")
	boardPath := viper.GetString("board")
	if hostPath == "" || boardPath == "" {
		return fmt.Errorf("both --host and --board serial devices are required")
	}
	baud := viper.GetInt("baud")

	image, err := os.ReadFile(viper.GetString("eeprom"))
	if err != nil {
		return fmt.Errorf("eeprom: %w", err)
	}
	rom, err := device.NewCarROM(image)
	if err != nil {
		return err
	}

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

	cfg := device.Config{
		Role:          device.RoleCar,
		HostPort:      hostPort,
		BoardPort:     boardPort,
		ROM:           rom,
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	}
	if err := hexArray(cfg.CarID[:], "car-id"); err != nil {
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
