package core

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"testing"
)

// fakePackage is an in-memory VersionedProvider with switchable failures.
type fakePackage struct {
	mu       sync.Mutex
	addr     Address
	versions map[string]ImplementationProvider
	checkErr error
	fetchErr error
}

func newFakePackage(addr Address) *fakePackage {
	return &fakePackage{
		addr:     addr,
		versions: map[string]ImplementationProvider{},
	}
}

func (p *fakePackage) withVersion(version string, provider ImplementationProvider) *fakePackage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions[version] = provider
	return p
}

func (p *fakePackage) dropVersion(version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.versions, version)
}

func (p *fakePackage) Address() Address {
	return p.addr
}

func (p *fakePackage) HasVersion(_ context.Context, version string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checkErr != nil {
		return false, p.checkErr
	}
	_, ok := p.versions[version]
	return ok, nil
}

func (p *fakePackage) Version(_ context.Context, version string) (ImplementationProvider, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, false, p.fetchErr
	}
	provider, ok := p.versions[version]
	return provider, ok, nil
}

// fakeProvider maps contract names to implementation addresses.
type fakeProvider struct {
	mu              sync.Mutex
	implementations map[string]Address
	err             error
}

func newFakeProvider(implementations map[string]Address) *fakeProvider {
	if implementations == nil {
		implementations = map[string]Address{}
	}
	return &fakeProvider{implementations: implementations}
}

func (p *fakeProvider) Implementation(_ context.Context, contract string) (Address, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return ZeroAddress, false, p.err
	}
	addr, ok := p.implementations[contract]
	return addr, ok, nil
}

type fakeProxyCall struct {
	implementation Address
	callData       []byte
	value          *big.Int
}

// fakeProxy enforces admin-only access the way the real collaborator does.
type fakeProxy struct {
	mu         sync.Mutex
	addr       Address
	admin      Address
	impl       Address
	upgradeErr error
	calls      []fakeProxyCall
}

func (p *fakeProxy) Address() Address {
	return p.addr
}

func (p *fakeProxy) Implementation(_ context.Context, caller Address) (Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireAdmin(caller); err != nil {
		return ZeroAddress, err
	}
	return p.impl, nil
}

func (p *fakeProxy) Admin(_ context.Context, caller Address) (Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireAdmin(caller); err != nil {
		return ZeroAddress, err
	}
	return p.admin, nil
}

func (p *fakeProxy) UpgradeTo(_ context.Context, caller Address, implementation Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	if p.upgradeErr != nil {
		return p.upgradeErr
	}
	p.impl = implementation
	p.calls = append(p.calls, fakeProxyCall{implementation: implementation})
	return nil
}

func (p *fakeProxy) UpgradeToAndCall(_ context.Context, caller Address, implementation Address, callData []byte, value *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	if p.upgradeErr != nil {
		return p.upgradeErr
	}
	p.impl = implementation
	p.calls = append(p.calls, fakeProxyCall{
		implementation: implementation,
		callData:       append([]byte(nil), callData...),
		value:          cloneBigInt(value),
	})
	return nil
}

func (p *fakeProxy) ChangeAdmin(_ context.Context, caller Address, newAdmin Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	p.admin = newAdmin
	return nil
}

func (p *fakeProxy) requireAdmin(caller Address) error {
	if !AddressesEqual(caller, p.admin) {
		return fmt.Errorf("proxy %s: caller %s is not the proxy admin", p.addr, caller)
	}
	return nil
}

func (p *fakeProxy) currentImplementation() Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.impl
}

func (p *fakeProxy) currentAdmin() Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.admin
}

func (p *fakeProxy) recordedCalls() []fakeProxyCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]fakeProxyCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// fakeProxyFactory hands out fakeProxies with sequential addresses.
type fakeProxyFactory struct {
	mu        sync.Mutex
	next      int
	deployed  []*fakeProxy
	deployErr error
}

func newFakeProxyFactory() *fakeProxyFactory {
	return &fakeProxyFactory{}
}

func (f *fakeProxyFactory) Deploy(_ context.Context, input DeployProxyInput) (Proxy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deployErr != nil {
		return nil, f.deployErr
	}
	f.next++
	proxy := &fakeProxy{
		addr:  Address(fmt.Sprintf("0xproxy-%03d", f.next)),
		admin: input.Admin,
		impl:  input.Implementation,
	}
	if len(input.InitData) > 0 || input.Value != nil {
		proxy.calls = append(proxy.calls, fakeProxyCall{
			implementation: input.Implementation,
			callData:       append([]byte(nil), input.InitData...),
			value:          cloneBigInt(input.Value),
		})
	}
	f.deployed = append(f.deployed, proxy)
	return proxy, nil
}

func (f *fakeProxyFactory) lastDeployed() *fakeProxy {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deployed) == 0 {
		return nil
	}
	return f.deployed[len(f.deployed)-1]
}

func (f *fakeProxyFactory) deployedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deployed)
}

// recordingHandler captures events published on the bus.
type recordingHandler struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.events = append(h.events, event.Clone())
	return nil
}

func (h *recordingHandler) snapshot() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *recordingHandler) byType(eventType string) []Event {
	var out []Event
	for _, event := range h.snapshot() {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// failingBindingStore wraps the memory store with switchable write failures.
type failingBindingStore struct {
	*MemoryBindingStore
	saveErr   error
	deleteErr error
}

func newFailingBindingStore() *failingBindingStore {
	return &failingBindingStore{MemoryBindingStore: NewMemoryBindingStore()}
}

func (s *failingBindingStore) Save(ctx context.Context, record BindingRecord) (BindingRecord, error) {
	if s.saveErr != nil {
		return BindingRecord{}, s.saveErr
	}
	return s.MemoryBindingStore.Save(ctx, record)
}

func (s *failingBindingStore) Delete(ctx context.Context, name string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryBindingStore.Delete(ctx, name)
}

// failingOwnershipStore rejects writes so transfer rollback can be observed.
type failingOwnershipStore struct {
	*MemoryOwnershipStore
	saveErr error
}

func newFailingOwnershipStore() *failingOwnershipStore {
	return &failingOwnershipStore{MemoryOwnershipStore: NewMemoryOwnershipStore()}
}

func (s *failingOwnershipStore) Save(ctx context.Context, record OwnershipRecord) (OwnershipRecord, error) {
	if s.saveErr != nil {
		return OwnershipRecord{}, s.saveErr
	}
	return s.MemoryOwnershipStore.Save(ctx, record)
}

// captureEnqueuer records job messages handed to the enqueuer.
type captureEnqueuer struct {
	mu       sync.Mutex
	messages []*JobExecutionMessage
	err      error
}

func (e *captureEnqueuer) Enqueue(_ context.Context, message *JobExecutionMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, message)
	return nil
}

func (e *captureEnqueuer) snapshot() []*JobExecutionMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*JobExecutionMessage, len(e.messages))
	copy(out, e.messages)
	return out
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

// captureLogger records log calls so tests can assert on structured fields.
// Clones returned by WithFields and WithContext share the record sink.
type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) logs() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func (l *captureLogger) messagesAt(level string) []string {
	var out []string
	for _, entry := range l.logs() {
		if entry.level == level {
			out = append(out, entry.msg)
		}
	}
	sort.Strings(out)
	return out
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

func cloneFieldMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

// captureMetrics records counters and histograms keyed by metric name.
type captureMetrics struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string][]float64
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{
		counters:   map[string]int64{},
		histograms: map[string][]float64{},
	}
}

func (m *captureMetrics) IncCounter(_ context.Context, name string, value int64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

func (m *captureMetrics) ObserveHistogram(_ context.Context, name string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = append(m.histograms[name], value)
}

func (m *captureMetrics) counterValue(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *captureMetrics) histogramCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.histograms[name])
}

const (
	testOwner    = Address("0xowner")
	testOutsider = Address("0xmallory")
)

// newTestService assembles a service around a recording bus. Extra options
// are appended after the defaults so callers can override collaborators.
func newTestService(t *testing.T, opts ...Option) (*Service, *recordingHandler) {
	t.Helper()
	bus := NewMemoryEventBus()
	recorder := &recordingHandler{}
	bus.Subscribe(recorder)

	options := []Option{
		WithEventBus(bus),
		WithProxyFactory(newFakeProxyFactory()),
	}
	options = append(options, opts...)

	svc, err := NewService(Config{
		ServiceName:  "upgrades-test",
		InitialOwner: string(testOwner),
	}, options...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, recorder
}

// registerPackage binds name to a fresh fake package carrying one version.
func registerPackage(t *testing.T, svc *Service, name, version string, implementations map[string]Address) *fakePackage {
	t.Helper()
	pkg := newFakePackage(Address("0xpkg-" + name)).
		withVersion(version, newFakeProvider(implementations))
	_, err := svc.SetPackage(context.Background(), SetPackageRequest{
		Caller:  testOwner,
		Name:    name,
		Package: pkg,
		Version: version,
	})
	if err != nil {
		t.Fatalf("set package %s: %v", name, err)
	}
	return pkg
}
