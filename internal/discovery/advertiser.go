package discovery

import (
	"fmt"
	"sync"
)

// Advertiser publishes at most one record at a time.
type Advertiser struct {
	dc *Context

	mu     sync.Mutex
	reg    Registration
	record Record
}

// Publish makes a session discoverable, withdrawing whatever was published
// before. A failure leaves nothing published; hosting itself can carry on
// with manual connections.
func (a *Advertiser) Publish(serviceName, serviceType string, port int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.withdrawLocked()

	if err := a.dc.backend.Probe(); err != nil {
		return err
	}

	reg, err := a.dc.backend.Register(serviceName, serviceType, port, []string{"txtv=1"})
	if err != nil {
		return fmt.Errorf("publish %s as %s: %w", serviceName, serviceType, err)
	}

	a.reg = reg
	a.record = Record{ServiceName: serviceName, ServiceType: serviceType, Port: port}

	a.dc.log.Info().
		Str("service", serviceName).
		Str("type", serviceType).
		Int("port", port).
		Msg("published session")

	return nil
}

// Unpublish withdraws the current record, if any.
func (a *Advertiser) Unpublish() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.withdrawLocked()
}

// Published returns the live record.
func (a *Advertiser) Published() (Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.record, a.reg != nil
}

func (a *Advertiser) withdrawLocked() {
	if a.reg == nil {
		return
	}

	a.reg.Shutdown()

	a.dc.log.Info().
		Str("service", a.record.ServiceName).
		Msg("withdrew session")

	a.reg = nil
	a.record = Record{}
}
