//go:build linux

// umdk-node runs the module firmware on a Linux board: module commands
// arrive over a serial link and drive the board's sysfs PWM channels.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"umdk/core"
	"umdk/host/config"
	"umdk/host/serial"
	"umdk/host/sysfspwm"
	"umdk/modules/pwm"
	"umdk/protocol"
)

var (
	configPath = flag.String("config", "/etc/umdk/node.yaml", "Node configuration file")
	shellMode  = flag.Bool("shell", false, "Read shell commands from stdin instead of serving the link")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	core.SetDebugWriter(func(s string) { log.Print(s) })
	core.SetDebugEnabled(cfg.Debug || *shellMode)
	core.SetShellWriter(func(s string) { fmt.Println(s) })

	var closer io.Closer
	switch cfg.Backend {
	case config.BackendMock:
		core.SetPWMDriver(core.NewMockPWMDriver())
	default:
		drv := sysfspwm.New(cfg.SysfsRoot, cfg.Chips())
		core.SetPWMDriver(drv)
		closer = drv
	}
	core.SetPinMap(cfg.PinMap())

	if _, err := pwm.InitModule(pwm.NewRegistry(cfg.Channels())); err != nil {
		log.Fatalf("pwm: %v", err)
	}
	log.Printf("modules: %v", core.GetGlobalModules().Names())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		if closer != nil {
			closer.Close()
		}
		os.Exit(0)
	}()

	if *shellMode {
		runShell(os.Stdin)
		return
	}

	port, err := serial.Open(&cfg.Serial)
	if err != nil {
		log.Fatalf("serial: %v", err)
	}
	defer port.Close()
	port.Flush()

	log.Printf("serving on %s (protocol %s)", cfg.Serial.Device, protocol.Version)
	if err := serve(port, core.HandleFrame); err != nil {
		log.Fatalf("link: %v", err)
	}
}

// portOutput writes frames straight to the serial port
type portOutput struct {
	w io.Writer
}

func (p portOutput) Output(data []byte) {
	if _, err := p.w.Write(data); err != nil {
		log.Printf("write: %v", err)
	}
}

// serve processes frames from port until a read fails
func serve(port io.ReadWriter, handler protocol.FrameHandler) error {
	transport := protocol.NewTransport(portOutput{port}, handler)
	transport.SetResetCallback(func() {
		core.DebugPrintln("[umdk] host reset")
	})

	input := protocol.NewFifoBuffer(256)
	buf := make([]byte, 64)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			data := buf[:n]
			for len(data) > 0 {
				w := input.Write(data)
				data = data[w:]
				transport.Receive(input)
				if w == 0 {
					// Garbage filled the buffer without forming a frame
					input.Reset()
				}
			}
		}
		if err != nil && err != io.EOF {
			return err
		}
	}
}

func runShell(r io.Reader) {
	scanner := bufio.NewScanner(r)
	fmt.Print("> ")
	for scanner.Scan() {
		if _, err := core.ExecShell(scanner.Text()); err != nil {
			fmt.Println(err)
			for _, c := range core.GetGlobalShell().Commands() {
				fmt.Printf("  %-8s %s\n", c.Name, c.Help)
			}
		}
		fmt.Print("> ")
	}
}
