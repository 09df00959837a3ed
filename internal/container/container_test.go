package container

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Notifier and its three implementations ground the DI primary-vs-named
// scenario directly from spec.md's literal end-to-end example.
type Notifier interface {
	Send(msg string) string
}

type EmailNotifier struct{}

func (e *EmailNotifier) Send(msg string) string { return "email:" + msg }

type SmsNotifier struct{}

func (s *SmsNotifier) Send(msg string) string { return "sms:" + msg }

type PushNotifier struct{}

func (p *PushNotifier) Send(msg string) string { return "push:" + msg }

func newEmailNotifier() *EmailNotifier { return &EmailNotifier{} }
func newSmsNotifier() *SmsNotifier     { return &SmsNotifier{} }
func newPushNotifier() *PushNotifier   { return &PushNotifier{} }

// Dispatcher has a constructor parameter whose name override must resolve
// to SmsNotifier specifically, per the scenario's third assertion.
type Dispatcher struct {
	N Notifier
}

func newDispatcher(n Notifier) *Dispatcher { return &Dispatcher{N: n} }

func TestDIPrimaryVsNamed(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(newEmailNotifier, WithName("emailNotifier")))
	require.NoError(t, c.Register(newSmsNotifier, WithName("smsNotifier")))
	require.NoError(t, c.Register(newPushNotifier, WithName("pushNotifier"), Primary()))
	require.NoError(t, c.Register(newDispatcher, ParamName(0, "smsNotifier")))
	require.NoError(t, c.Initialize())

	notifierType := reflect.TypeOf((*Notifier)(nil)).Elem()
	resolved, err := c.ResolveByType(notifierType)
	require.NoError(t, err)
	assert.IsType(t, &PushNotifier{}, resolved)

	byName, err := c.ResolveByName("emailNotifier")
	require.NoError(t, err)
	assert.IsType(t, &EmailNotifier{}, byName)

	dispatcherType := reflect.TypeOf((*Dispatcher)(nil))
	dAny, err := c.ResolveByType(dispatcherType)
	require.NoError(t, err)
	d := dAny.(*Dispatcher)
	assert.IsType(t, &SmsNotifier{}, d.N)
}

// DB grounds the lifecycle-ordering scenario: two post-init callbacks and
// one pre-destroy callback, each expected to run exactly once and in order.
type DB struct {
	calls *[]string
}

func (d *DB) A() { *d.calls = append(*d.calls, "a") }
func (d *DB) B() { *d.calls = append(*d.calls, "b") }
func (d *DB) C() { *d.calls = append(*d.calls, "c") }

func TestLifecycleOrdering(t *testing.T) {
	calls := []string{}
	newDB := func() *DB { return &DB{calls: &calls} }

	c := New(nil)
	require.NoError(t, c.Register(newDB, PostInitMethod("A"), PostInitMethod("B"), PreDestroyMethod("C")))
	require.NoError(t, c.Initialize())

	assert.Equal(t, []string{"a", "b"}, calls)

	c.Dispose()
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestSingletonIdentity(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(newEmailNotifier))
	require.NoError(t, c.Initialize())

	t1 := reflect.TypeOf((*EmailNotifier)(nil))
	first, err := c.ResolveByType(t1)
	require.NoError(t, err)
	second, err := c.ResolveByType(t1)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

type widget struct{ id int }

var widgetCounter int

func newWidget() *widget {
	widgetCounter++
	return &widget{id: widgetCounter}
}

func TestPrototypeNonIdentity(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(newWidget, PrototypeScope()))
	require.NoError(t, c.Initialize())

	wt := reflect.TypeOf((*widget)(nil))
	first, err := c.ResolveByType(wt)
	require.NoError(t, err)
	second, err := c.ResolveByType(wt)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestAmbiguousBindingWithoutPrimary(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(newEmailNotifier, WithName("emailNotifier")))
	require.NoError(t, c.Register(newSmsNotifier, WithName("smsNotifier")))

	notifierType := reflect.TypeOf((*Notifier)(nil)).Elem()
	_, err := c.ResolveByType(notifierType)
	assert.ErrorIs(t, err, ErrAmbiguousBinding)
}

func TestMissingBinding(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Initialize())

	notifierType := reflect.TypeOf((*Notifier)(nil)).Elem()
	_, err := c.ResolveByType(notifierType)
	assert.ErrorIs(t, err, ErrMissingBinding)
}

type cyclicA struct{ B *cyclicB }
type cyclicB struct{ A *cyclicA }

func newCyclicA(b *cyclicB) *cyclicA { return &cyclicA{B: b} }
func newCyclicB(a *cyclicA) *cyclicB { return &cyclicB{A: a} }

func TestCyclicBindingDetected(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(newCyclicA))
	require.NoError(t, c.Register(newCyclicB))

	err := c.Initialize()
	assert.ErrorIs(t, err, ErrCyclicBinding)
}

func TestInvalidLifecycleMethodRejectedAtRegister(t *testing.T) {
	c := New(nil)
	err := c.Register(newEmailNotifier, PostInitMethod("DoesNotExist"))
	assert.ErrorIs(t, err, ErrInvalidLifecycle)
}

func TestRegisterAfterInitializeRejected(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Initialize())
	err := c.Register(newEmailNotifier)
	assert.ErrorIs(t, err, ErrAlreadyBuilt)
}
