//go:build rp2040

package main

import (
	"machine"
	"time"

	"umdk/core"
)

var debugUART *machine.UART

// InitDebugUART routes core debug output to UART1 (TX=GPIO20, RX=GPIO21)
// at 115200 baud, keeping it off the USB link
func InitDebugUART() {
	debugUART = machine.UART1

	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO20,
		RX:       machine.GPIO21,
	})
	if err != nil {
		return
	}

	core.SetDebugWriter(func(s string) {
		debugUART.Write([]byte(s))
		debugUART.Write([]byte("\r\n"))
	})
	core.SetShellWriter(func(s string) {
		debugUART.Write([]byte(s))
		debugUART.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()
}

// shellLoop reads shell lines from the debug UART
func shellLoop() {
	var line []byte
	for {
		if debugUART == nil || debugUART.Buffered() == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		b, err := debugUART.ReadByte()
		if err != nil {
			continue
		}
		switch b {
		case '\r', '\n':
			if len(line) > 0 {
				if _, err := core.ExecShell(string(line)); err != nil {
					core.ShellPrintln(err.Error())
				}
				line = line[:0]
			}
		default:
			if len(line) < 80 {
				line = append(line, b)
			}
		}
	}
}
