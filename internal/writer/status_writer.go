// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/attendance-notifier/internal/status"
	wmodbus "github.com/tamzrod/attendance-notifier/internal/writer/modbus"
)

// StatusWriter is the delivery-only contract for poll status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// endpointClient is the exact contract the status writer uses.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// StatusPlan says where the status block lives.
type StatusPlan struct {
	Endpoint string
	UnitID   uint8
	BaseSlot uint16
	Label    string
}

// statusWriter is the Modbus implementation.
type statusWriter struct {
	plan StatusPlan
	cli  endpointClient

	needFull  bool
	last      status.Snapshot
	labelRegs []uint16
}

func newStatusWriter(plan StatusPlan, cli endpointClient) *statusWriter {
	return &statusWriter{
		plan:      plan,
		cli:       cli,
		needFull:  true, // full re-assert on first successful write
		last:      status.Snapshot{Health: status.HealthUnknown},
		labelRegs: status.EncodeLabel(plan.Label),
	}
}

// NewModbusStatusWriter connects a status writer to a Modbus TCP server.
func NewModbusStatusWriter(plan StatusPlan, timeout time.Duration) (StatusWriter, func() error, error) {
	cli, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: plan.Endpoint,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return newStatusWriter(plan, cli), cli.Close, nil
}

// WriteStatus delivers a snapshot into the status block.
// On any write failure, the next call re-asserts the full block.
func (sw *statusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.cli == nil {
		return errors.New("status writer: disabled")
	}

	baseAddr := sw.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, baseAddr, sw.fullBlockRegs(s)); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	// ------------------------------------------------------------
	// Incremental: changed slots only
	// ------------------------------------------------------------
	slots := []struct {
		slot uint16
		name string
		prev *uint16
		next uint16
	}{
		{status.SlotHealthCode, "health", &sw.last.Health, s.Health},
		{status.SlotLastErrorCode, "last_error", &sw.last.LastErrorCode, s.LastErrorCode},
		{status.SlotSecondsInError, "seconds_in_error", &sw.last.SecondsInError, s.SecondsInError},
		{status.SlotCoursesTracked, "courses", &sw.last.CoursesTracked, s.CoursesTracked},
		{status.SlotEventsLastCycle, "events", &sw.last.EventsLastCycle, s.EventsLastCycle},
	}

	var errs []string
	for _, sl := range slots {
		if *sl.prev == sl.next {
			continue
		}
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, baseAddr+sl.slot, []uint16{sl.next}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", sl.slot, sl.name, err))
			continue
		}
		*sl.prev = sl.next
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next success.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *statusWriter) baseAddr() uint16 {
	// Each instance owns a fixed SlotsPerInstance block.
	return sw.plan.BaseSlot * status.SlotsPerInstance
}

func (sw *statusWriter) fullBlockRegs(s status.Snapshot) []uint16 {
	regs := status.Encode(s)

	// Label always lives at the end of the block
	copy(regs[status.SlotLabelStart:status.SlotLabelEnd+1], sw.labelRegs)

	return regs
}
