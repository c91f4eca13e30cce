package seed

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// BitBabbler devices are FTDI parts with a vendor-assigned product ID; the
// entropy stream is clocked out over MPSSE.
const (
	ftdiVendorID     = 0x0403
	bitbProductID    = 0x7840
	ftdiClockBase    = 30_000_000
	defaultBitrate   = 2_500_000
	defaultLatencyMs = 1
)

// FTDI vendor control requests and MPSSE opcodes, the subset needed to bring
// the device up and clock bytes in.
const (
	ftdiReqReset       = 0x00
	ftdiReqSetFlowCtrl = 0x02
	ftdiReqSetLatency  = 0x09
	ftdiReqSetBitmode  = 0x0B

	ftdiFlowRtsCts   = 0x0100
	ftdiBitmodeReset = 0x0000
	ftdiBitmodeMpsse = 0x0200

	mpsseNoClkDiv5      = 0x8A
	mpsseNo3PhaseClk    = 0x8D
	mpsseNoAdaptiveClk  = 0x97
	mpsseSetDataLow     = 0x80
	mpsseSetDataHigh    = 0x82
	mpsseSetClkDivisor  = 0x86
	mpsseSendImmediate  = 0x87
	mpsseNoLoopback     = 0x85
	mpsseReadBytesInMSB = 0x20
)

// BitBabbler returns a source that draws seed bytes from the first
// BitBabbler found on the USB bus. bitrate is the MPSSE bit clock in Hz and
// latencyMs the FTDI latency timer; zero selects conservative defaults.
func BitBabbler(bitrate uint, latencyMs uint8) Source {
	if bitrate == 0 {
		bitrate = defaultBitrate
	}
	if latencyMs == 0 {
		latencyMs = defaultLatencyMs
	}
	return &bitbSource{bitrate: bitrate, latencyMs: latencyMs}
}

type bitbSource struct {
	bitrate   uint
	latencyMs uint8
}

func (*bitbSource) Name() string { return "bitb" }

func (b *bitbSource) Bytes() ([Size]byte, error) {
	var s [Size]byte
	dev, err := openBitBabbler(b.bitrate, b.latencyMs)
	if err != nil {
		return s, err
	}
	defer dev.close()
	if err := dev.readEntropy(s[:]); err != nil {
		return s, err
	}
	return s, nil
}

// bitbDevice is an open BitBabbler with MPSSE brought up and synchronized.
type bitbDevice struct {
	ctx       *gousb.Context
	dev       *gousb.Device
	cfg       *gousb.Config
	intf      *gousb.Interface
	in        *gousb.InEndpoint
	out       *gousb.OutEndpoint
	maxPacket int
}

func openBitBabbler(bitrate uint, latencyMs uint8) (*bitbDevice, error) {
	d := &bitbDevice{ctx: gousb.NewContext()}

	fail := func(err error) (*bitbDevice, error) {
		d.close()
		return nil, err
	}

	var err error
	d.dev, err = d.ctx.OpenDeviceWithVIDPID(ftdiVendorID, bitbProductID)
	if err != nil {
		return fail(fmt.Errorf("opening USB device: %w", err))
	}
	if d.dev == nil {
		return fail(errors.New("BitBabbler device not found"))
	}
	_ = d.dev.SetAutoDetach(true)

	if d.cfg, err = d.dev.Config(1); err != nil {
		return fail(fmt.Errorf("claiming config: %w", err))
	}
	if d.intf, err = d.cfg.Interface(0, 0); err != nil {
		return fail(fmt.Errorf("claiming interface: %w", err))
	}
	for _, ep := range d.intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionIn {
			d.in, err = d.intf.InEndpoint(ep.Number)
		} else {
			d.out, err = d.intf.OutEndpoint(ep.Number)
		}
		if err != nil {
			return fail(fmt.Errorf("opening endpoint %d: %w", ep.Number, err))
		}
	}
	if d.in == nil || d.out == nil {
		return fail(errors.New("bulk endpoints not found"))
	}
	d.maxPacket = d.in.Desc.MaxPacketSize

	if err := d.initMPSSE(bitrate, latencyMs); err != nil {
		return fail(err)
	}
	return d, nil
}

func (d *bitbDevice) initMPSSE(bitrate uint, latencyMs uint8) error {
	steps := []struct {
		req   uint8
		value uint16
		name  string
	}{
		{ftdiReqReset, 0, "reset"},
		{ftdiReqSetLatency, uint16(latencyMs), "set latency"},
		{ftdiReqSetBitmode, ftdiBitmodeReset, "reset bitmode"},
		{ftdiReqSetBitmode, ftdiBitmodeMpsse, "enter MPSSE"},
	}
	for _, st := range steps {
		if err := d.control(st.req, st.value, 1); err != nil {
			return fmt.Errorf("%s: %w", st.name, err)
		}
	}
	if err := d.control(ftdiReqSetFlowCtrl, 0, ftdiFlowRtsCts|1); err != nil {
		return fmt.Errorf("set flow control: %w", err)
	}
	time.Sleep(50 * time.Millisecond)
	d.drain()

	// MPSSE echoes bad opcodes as 0xFA <op>; use that to confirm the engine
	// is in sync before trusting any data it clocks in.
	if !d.checkSync(0xAA) || !d.checkSync(0xAB) {
		return errors.New("MPSSE sync failed")
	}

	clkDiv := uint16(ftdiClockBase/bitrate - 1)
	setup := []byte{
		mpsseNoClkDiv5,
		mpsseNoAdaptiveClk,
		mpsseNo3PhaseClk,
		mpsseSetDataLow, 0x00, 0x0B, // CLK, DO, CS as outputs, low
		mpsseSetDataHigh, 0x00, 0x00,
		mpsseSetClkDivisor, byte(clkDiv), byte(clkDiv >> 8),
		mpsseNoLoopback,
	}
	if _, err := d.out.Write(setup); err != nil {
		return fmt.Errorf("programming clock: %w", err)
	}
	time.Sleep(30 * time.Millisecond)
	d.drain()
	return nil
}

// readEntropy clocks in exactly len(buf) bytes, stripping the 2-byte FTDI
// status header that prefixes every USB packet.
func (d *bitbDevice) readEntropy(buf []byte) error {
	n := len(buf)
	cmd := []byte{
		mpsseReadBytesInMSB,
		byte((n - 1) & 0xFF),
		byte((n - 1) >> 8),
		mpsseSendImmediate,
	}
	if _, err := d.out.Write(cmd); err != nil {
		return fmt.Errorf("issuing read: %w", err)
	}

	got := 0
	tmp := make([]byte, d.maxPacket*4)
	for attempts := 0; got < n; attempts++ {
		if attempts > 50 {
			return fmt.Errorf("device stalled: got %d/%d bytes", got, n)
		}
		m, err := d.in.Read(tmp)
		if err != nil {
			return fmt.Errorf("bulk read: %w", err)
		}
		for off := 0; off < m && got < n; off += d.maxPacket {
			end := off + d.maxPacket
			if end > m {
				end = m
			}
			if end-off <= 2 {
				continue
			}
			got += copy(buf[got:], tmp[off+2:end])
		}
	}
	return nil
}

func (d *bitbDevice) control(req uint8, value, index uint16) error {
	typ := uint8(gousb.ControlOut) | uint8(gousb.ControlVendor) | uint8(gousb.ControlDevice)
	_, err := d.dev.Control(typ, req, value, index, nil)
	return err
}

func (d *bitbDevice) checkSync(op byte) bool {
	if _, err := d.out.Write([]byte{op, mpsseSendImmediate}); err != nil {
		return false
	}
	buf := make([]byte, 512)
	for i := 0; i < 10; i++ {
		n, _ := d.in.Read(buf)
		if n == 4 && buf[2] == 0xFA && buf[3] == op {
			return true
		}
	}
	return false
}

// drain discards buffered packets until only status headers remain.
func (d *bitbDevice) drain() {
	buf := make([]byte, 8192)
	for i := 0; i < 10; i++ {
		if n, _ := d.in.Read(buf); n <= 2 {
			return
		}
	}
}

func (d *bitbDevice) close() {
	if d.intf != nil {
		d.intf.Close()
	}
	if d.cfg != nil {
		d.cfg.Close()
	}
	if d.dev != nil {
		d.dev.Close()
	}
	if d.ctx != nil {
		d.ctx.Close()
	}
}
