package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	name     string
	deps     []string
	initErr  error
	startErr error
	stopErr  error
	journal  *[]string
	initArgs []any
}

func (f *fakeService) Name() string           { return f.name }
func (f *fakeService) Dependencies() []string { return f.deps }

func (f *fakeService) Init(args ...any) error {
	f.initArgs = args
	*f.journal = append(*f.journal, "init:"+f.name)
	return f.initErr
}

func (f *fakeService) Start() error {
	*f.journal = append(*f.journal, "start:"+f.name)
	return f.startErr
}

func (f *fakeService) Stop() error {
	*f.journal = append(*f.journal, "stop:"+f.name)
	return f.stopErr
}

func newFake(journal *[]string, name string, deps ...string) *fakeService {
	return &fakeService{name: name, deps: deps, journal: journal}
}

func TestHub_DependencyOrder(t *testing.T) {
	var journal []string
	h := NewHub()
	require.NoError(t, h.Register(newFake(&journal, "bridge", "mindwave", "status")))
	require.NoError(t, h.Register(newFake(&journal, "mindwave", "status")))
	require.NoError(t, h.Register(newFake(&journal, "status")))
	require.NoError(t, h.Register(newFake(&journal, "recorder", "mindwave")))

	require.NoError(t, h.InitAll("cfg"))
	assert.Equal(t, []string{"status", "mindwave", "bridge", "recorder"}, h.Order())

	require.NoError(t, h.StartAll())
	require.NoError(t, h.StopAll())

	assert.Equal(t, []string{
		"init:status", "init:mindwave", "init:bridge", "init:recorder",
		"start:status", "start:mindwave", "start:bridge", "start:recorder",
		"stop:recorder", "stop:bridge", "stop:mindwave", "stop:status",
	}, journal)

	svc := MustGet[*fakeService](h, "bridge")
	assert.Equal(t, []any{"cfg"}, svc.initArgs)
}

func TestHub_RegisterDuplicate(t *testing.T) {
	var journal []string
	h := NewHub()
	require.NoError(t, h.Register(newFake(&journal, "status")))
	assert.Error(t, h.Register(newFake(&journal, "status")))
	assert.Equal(t, []string{"status"}, h.Names())
}

func TestHub_UnknownDependency(t *testing.T) {
	var journal []string
	h := NewHub()
	require.NoError(t, h.Register(newFake(&journal, "bridge", "mindwave")))
	err := h.InitAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered service: mindwave")
	assert.Empty(t, journal)
}

func TestHub_Cycle(t *testing.T) {
	var journal []string
	h := NewHub()
	require.NoError(t, h.Register(newFake(&journal, "a", "b")))
	require.NoError(t, h.Register(newFake(&journal, "b", "a")))
	assert.ErrorIs(t, h.InitAll(), ErrCircularDependency)
}

func TestHub_InitRollback(t *testing.T) {
	var journal []string
	h := NewHub()
	require.NoError(t, h.Register(newFake(&journal, "status")))
	bad := newFake(&journal, "mindwave", "status")
	bad.initErr = errors.New("no config")
	require.NoError(t, h.Register(bad))

	err := h.InitAll()
	require.ErrorIs(t, err, bad.initErr)
	assert.Equal(t, []string{"init:status", "init:mindwave", "stop:status"}, journal)
}

func TestHub_StartRollback(t *testing.T) {
	var journal []string
	h := NewHub()
	require.NoError(t, h.Register(newFake(&journal, "status")))
	bad := newFake(&journal, "bridge", "status")
	bad.startErr = errors.New("address in use")
	require.NoError(t, h.Register(bad))

	require.NoError(t, h.InitAll())
	journal = journal[:0]

	require.ErrorIs(t, h.StartAll(), bad.startErr)
	assert.Equal(t, []string{"start:status", "start:bridge", "stop:status"}, journal)

	// Nothing left to stop
	journal = journal[:0]
	require.NoError(t, h.StopAll())
	assert.Empty(t, journal)
}

func TestHub_StopJoinsErrors(t *testing.T) {
	var journal []string
	h := NewHub()
	a := newFake(&journal, "a")
	a.stopErr = errors.New("a failed")
	b := newFake(&journal, "b", "a")
	b.stopErr = errors.New("b failed")
	require.NoError(t, h.Register(a))
	require.NoError(t, h.Register(b))

	require.NoError(t, h.InitAll())
	require.NoError(t, h.StartAll())

	err := h.StopAll()
	assert.ErrorIs(t, err, a.stopErr)
	assert.ErrorIs(t, err, b.stopErr)
}

func TestHub_StartBeforeInit(t *testing.T) {
	h := NewHub()
	assert.Error(t, h.StartAll())
}

func TestLookup(t *testing.T) {
	var journal []string
	h := NewHub()
	require.NoError(t, h.Register(newFake(&journal, "status")))

	_, err := Lookup[*fakeService](h, "missing")
	assert.Error(t, err)

	svc, err := Lookup[*fakeService](h, "status")
	require.NoError(t, err)
	assert.Equal(t, "status", svc.Name())

	assert.Panics(t, func() { MustGet[*fakeService](h, "missing") })
}
