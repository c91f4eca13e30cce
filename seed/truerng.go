package seed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// trueRNGPrefix identifies a TrueRNG device by its USB product string or
// port name.
const trueRNGPrefix = "TrueRNG"

// TrueRNG returns a source that draws seed bytes from the first TrueRNG
// serial device found on the system.
func TrueRNG() Source { return trueRNGSource{} }

type trueRNGSource struct{}

func (trueRNGSource) Name() string { return "trng" }

func (trueRNGSource) Bytes() ([Size]byte, error) {
	var s [Size]byte
	portName, err := findTrueRNGPort()
	if err != nil {
		return s, err
	}

	mode := &serial.Mode{
		BaudRate: 3000000, // models clamp to what they support
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return s, fmt.Errorf("open %s: %w", portName, err)
	}
	defer func() { _ = port.Close() }()

	// Assert DTR to start the stream, then discard whatever the device had
	// buffered before we asked.
	_ = port.SetDTR(true)
	_ = port.SetReadTimeout(time.Second)
	_ = port.ResetInputBuffer()

	total := 0
	deadline := time.Now().Add(10 * time.Second)
	for total < Size {
		if time.Now().After(deadline) {
			return s, fmt.Errorf("seed read timeout: got %d/%d bytes", total, Size)
		}
		n, err := port.Read(s[total:])
		if err != nil {
			return s, fmt.Errorf("read %s: %w", portName, err)
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		total += n
	}
	return s, nil
}

func findTrueRNGPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("enumerating serial ports: %w", err)
	}
	for _, p := range ports {
		if p != nil && looksLikeTrueRNG(p) && p.Name != "" {
			return p.Name, nil
		}
	}
	return "", errors.New("TrueRNG device not found")
}

func looksLikeTrueRNG(p *enumerator.PortDetails) bool {
	if p.IsUSB && (strings.HasPrefix(p.Product, trueRNGPrefix) || strings.HasPrefix(p.SerialNumber, trueRNGPrefix)) {
		return true
	}
	if strings.HasPrefix(p.Name, trueRNGPrefix) {
		return true
	}
	// Known TrueRNG VID/PID pairs.
	return p.VID == "16D0" && (p.PID == "0AA0" || p.PID == "0AA2" || p.PID == "0AA4")
}
