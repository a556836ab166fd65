package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"

	"umdk/host/node"
	"umdk/host/serial"
	"umdk/modules/pwm"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", serial.DefaultBaud, "Baud rate (ignored for USB CDC)")
	timeout = flag.Duration("timeout", node.DefaultReplyTimeout, "Time to wait for a module reply")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	fmt.Println("umdk host - module command console")
	fmt.Println()

	n := node.New()
	n.ReplyTimeout = *timeout

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	fmt.Printf("Connecting to node on %s...\n", *device)
	if err := n.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer n.Close()

	fmt.Println("Connected. Type 'help' for available commands, 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case pwm.Name:
			if err := runPWM(n, args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "raw":
			if err := runRaw(n, args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", args[0])
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  pwm set <pin> <frequency> <duty> <pulses>")
	fmt.Println("                 - Configure a PWM output (frequency 0 stops it,")
	fmt.Println("                   pulses 0 runs continuously)")
	fmt.Println("  raw <id> <byte>...")
	fmt.Println("                 - Send raw bytes to a module")
	fmt.Println("  help           - Show this help message")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println()
}

func runPWM(n *node.Node, args []string) error {
	if len(args) < 6 || args[1] != "set" {
		return fmt.Errorf("usage: pwm set <pin> <frequency> <duty> <pulses>")
	}
	req, err := pwm.ParseSetArgs(args[2:6])
	if err != nil {
		return fmt.Errorf("invalid argument: %w", err)
	}
	if *verbose {
		fmt.Printf("-> module %d: % X\n", pwm.ModuleID, pwm.EncodeRequest(req))
	}

	start := time.Now()
	status, err := n.ConfigurePWM(req)
	if err != nil {
		return err
	}
	fmt.Printf("pwm: %v (%v)\n", status, time.Since(start).Round(time.Millisecond))
	return nil
}

func runRaw(n *node.Node, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raw <id> <byte>...")
	}
	id, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid module id: %w", err)
	}
	data := make([]byte, 0, len(args)-2)
	for _, a := range args[2:] {
		b, err := strconv.ParseUint(a, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid byte %q: %w", a, err)
		}
		data = append(data, byte(b))
	}

	reply, err := n.SendModule(uint8(id), data)
	if err != nil {
		return err
	}
	fmt.Printf("<- % X\n", reply)
	return nil
}
