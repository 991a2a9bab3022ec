package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

var t0 = time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeRadio struct {
	status     model.RadioStatus
	networks   []model.Network
	associated []model.Credentials
	scans      int
	scanErr    error
}

func (r *fakeRadio) Status() model.RadioStatus { return r.status }
func (r *fakeRadio) Scan() ([]model.Network, error) {
	r.scans++
	if r.scanErr != nil {
		return nil, r.scanErr
	}
	return r.networks, nil
}
func (r *fakeRadio) Associate(ssid, password string) {
	r.associated = append(r.associated, model.Credentials{SSID: ssid, Password: password})
}
func (r *fakeRadio) LocalAddress() string { return "192.168.1.50" }

type fakeTransport struct {
	status int
	body   string
	err    error
	paths  []string
}

func (t *fakeTransport) URL(path string) string { return "http://schedule.test" + path }

func (t *fakeTransport) Get(_ context.Context, path string) (int, []byte, error) {
	t.paths = append(t.paths, path)
	if t.err != nil {
		return 0, nil, t.err
	}
	return t.status, []byte(t.body), nil
}

var errDisk = errors.New("disk I/O error")

type fakeStore struct {
	creds    *model.Credentials
	schedule *model.Schedule
	failSave bool
	failLoad bool
}

func (s *fakeStore) SaveCredentials(c model.Credentials) error {
	if s.failSave {
		return errDisk
	}
	s.creds = &c
	return nil
}

func (s *fakeStore) LoadCredentials() (model.Credentials, bool, error) {
	if s.failLoad {
		return model.Credentials{}, false, errDisk
	}
	if s.creds == nil {
		return model.Credentials{}, false, nil
	}
	return *s.creds, true, nil
}

func (s *fakeStore) SaveSchedule(sch model.Schedule) error {
	if s.failSave {
		return errDisk
	}
	s.schedule = &sch
	return nil
}

func (s *fakeStore) LoadSchedule() (model.Schedule, bool, error) {
	if s.failLoad {
		return model.Schedule{}, false, errDisk
	}
	if s.schedule == nil {
		return model.Schedule{}, false, nil
	}
	return *s.schedule, true, nil
}

type fakeConsole struct {
	mu      sync.Mutex
	bytes   []byte
	lines   []string
	printed []string
	drains  int
}

func (c *fakeConsole) PollByte() (byte, bool) {
	if len(c.bytes) == 0 {
		return 0, false
	}
	b := c.bytes[0]
	c.bytes = c.bytes[1:]
	return b, true
}

func (c *fakeConsole) ReadLine() (string, bool) {
	if len(c.lines) == 0 {
		return "", false
	}
	l := c.lines[0]
	c.lines = c.lines[1:]
	return l, true
}

func (c *fakeConsole) Drain() { c.drains++ }

func (c *fakeConsole) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printed = append(c.printed, fmt.Sprintln(a...))
}

func (c *fakeConsole) Printed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.printed))
	for i, p := range c.printed {
		out[i] = p[:len(p)-1]
	}
	return out
}

type fakeIndicators struct {
	status      bool
	statusCalls int
	zones       [3]bool
	zoneCalls   int
}

func (i *fakeIndicators) SetStatus(on bool) {
	i.status = on
	i.statusCalls++
}

func (i *fakeIndicators) SetZones(z [3]bool) {
	i.zones = z
	i.zoneCalls++
}

type fakeReset struct {
	pressed bool
}

func (r *fakeReset) Pressed() bool {
	p := r.pressed
	r.pressed = false
	return p
}

type recordingMetrics struct {
	counts map[string]int64
	gauges map[string]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: map[string]int64{}, gauges: map[string]float64{}}
}

func (m *recordingMetrics) Gauge(name string, value float64, _ ...string) { m.gauges[name] = value }
func (m *recordingMetrics) Count(name string, value int64, _ ...string)   { m.counts[name] += value }
