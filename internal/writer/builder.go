// internal/writer/builder.go
package writer

import (
	"time"

	"github.com/tamzrod/attendance-notifier/internal/config"
)

// BuildStatusWriter returns the Modbus status writer when an endpoint is
// configured. enabled=false means status export is off; the returned
// closer is always safe to call.
func BuildStatusWriter(c config.StatusExportConfig) (sw StatusWriter, closeFn func() error, enabled bool, err error) {
	noop := func() error { return nil }

	if c.Endpoint == "" {
		return nil, noop, false, nil
	}

	sw, closeFn, err = NewModbusStatusWriter(StatusPlan{
		Endpoint: c.Endpoint,
		UnitID:   c.UnitID,
		BaseSlot: c.BaseSlot,
		Label:    c.Label,
	}, time.Duration(c.TimeoutMs)*time.Millisecond)
	if err != nil {
		return nil, noop, false, err
	}
	return sw, closeFn, true, nil
}
