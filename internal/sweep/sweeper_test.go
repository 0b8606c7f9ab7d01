package sweep

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autolavados/booking-api/internal/model"
	reservaService "github.com/autolavados/booking-api/internal/service/reserva"
	apperrors "github.com/autolavados/booking-api/pkg/errors"
	"github.com/autolavados/booking-api/pkg/logger"
)

// base is the fixed instant every test clock starts from.
var base = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type fakeReservaRepo struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*model.Reserva
	failUpdates map[uuid.UUID]error
}

func newFakeReservaRepo() *fakeReservaRepo {
	return &fakeReservaRepo{
		byID:        make(map[uuid.UUID]*model.Reserva),
		failUpdates: make(map[uuid.UUID]error),
	}
}

func copia(r *model.Reserva) *model.Reserva {
	c := *r
	return &c
}

func (f *fakeReservaRepo) Create(ctx context.Context, reserva *model.Reserva) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[reserva.ID] = copia(reserva)
	return nil
}

func (f *fakeReservaRepo) Get(ctx context.Context, id uuid.UUID) (*model.Reserva, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, apperrors.NewNotFound("reserva", nil)
	}
	return copia(r), nil
}

func (f *fakeReservaRepo) List(ctx context.Context, filters *model.ReservaFilters) ([]*model.Reserva, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reserva
	for _, r := range f.byID {
		out = append(out, copia(r))
	}
	return out, nil
}

func (f *fakeReservaRepo) UpdateEstadoFrom(ctx context.Context, reserva *model.Reserva, from model.ReservaEstado) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failUpdates[reserva.ID]; ok {
		return err
	}
	stored, ok := f.byID[reserva.ID]
	if !ok || stored.Estado != from {
		return apperrors.StaleTransition(reserva.ID.String())
	}
	f.byID[reserva.ID] = copia(reserva)
	return nil
}

func (f *fakeReservaRepo) SetReferenciaPago(ctx context.Context, id uuid.UUID, referencia string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return apperrors.NewNotFound("reserva", nil)
	}
	r.ReferenciaPago = &referencia
	return nil
}

func (f *fakeReservaRepo) GetByReferenciaPago(ctx context.Context, referencia string) (*model.Reserva, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.ReferenciaPago != nil && *r.ReferenciaPago == referencia {
			return copia(r), nil
		}
	}
	return nil, apperrors.NewNotFound("reserva", nil)
}

func (f *fakeReservaRepo) ListPendientesCreadasAntes(ctx context.Context, limite time.Time) ([]*model.Reserva, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reserva
	for _, r := range f.byID {
		if r.Estado == model.EstadoPendiente && r.FechaCreacion.Before(limite) {
			out = append(out, copia(r))
		}
	}
	return out, nil
}

func (f *fakeReservaRepo) ListActivasProgramadasAntes(ctx context.Context, limite time.Time) ([]*model.Reserva, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reserva
	for _, r := range f.byID {
		if (r.Estado == model.EstadoPendiente || r.Estado == model.EstadoConfirmada) && r.FechaHora.Before(limite) {
			out = append(out, copia(r))
		}
	}
	return out, nil
}

func (f *fakeReservaRepo) ListConfirmadasProgramadasAntes(ctx context.Context, limite time.Time) ([]*model.Reserva, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reserva
	for _, r := range f.byID {
		if r.Estado == model.EstadoConfirmada && r.FechaHora.Before(limite) {
			out = append(out, copia(r))
		}
	}
	return out, nil
}

func (f *fakeReservaRepo) ListEnProcesoConInicio(ctx context.Context) ([]*model.Reserva, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Reserva
	for _, r := range f.byID {
		if r.Estado == model.EstadoEnProceso && r.FechaInicioServicio != nil {
			out = append(out, copia(r))
		}
	}
	return out, nil
}

type fakeHorarioRepo struct {
	mu       sync.Mutex
	ventanas map[uuid.UUID]*model.HorarioDisponible
}

func newFakeHorarioRepo() *fakeHorarioRepo {
	return &fakeHorarioRepo{ventanas: make(map[uuid.UUID]*model.HorarioDisponible)}
}

func (f *fakeHorarioRepo) Get(ctx context.Context, id uuid.UUID) (*model.HorarioDisponible, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.ventanas[id]
	if !ok {
		return nil, apperrors.NewNotFound("horario", nil)
	}
	c := *h
	return &c, nil
}

func (f *fakeHorarioRepo) ListCubriendo(ctx context.Context, t time.Time) ([]*model.HorarioDisponible, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.HorarioDisponible
	for _, h := range f.ventanas {
		if h.Disponible && h.Cubre(t) {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeHorarioRepo) ListByFecha(ctx context.Context, fecha time.Time) ([]*model.HorarioDisponible, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.HorarioDisponible
	for _, h := range f.ventanas {
		c := *h
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeHorarioRepo) Incrementar(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.ventanas[id]
	if !ok {
		return false, apperrors.NewNotFound("horario", nil)
	}
	if h.ReservasActuales >= h.Capacidad {
		return false, nil
	}
	h.ReservasActuales++
	return true, nil
}

func (f *fakeHorarioRepo) Decrementar(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.ventanas[id]
	if !ok {
		return false, apperrors.NewNotFound("horario", nil)
	}
	if h.ReservasActuales <= 0 {
		return false, nil
	}
	h.ReservasActuales--
	return true, nil
}

type fakeServicioRepo struct {
	servicios map[uuid.UUID]*model.Servicio
}

func (f *fakeServicioRepo) Get(ctx context.Context, id uuid.UUID) (*model.Servicio, error) {
	s, ok := f.servicios[id]
	if !ok {
		return nil, apperrors.NewNotFound("servicio", nil)
	}
	c := *s
	return &c, nil
}

func (f *fakeServicioRepo) ListActivos(ctx context.Context) ([]*model.Servicio, error) {
	var out []*model.Servicio
	for _, s := range f.servicios {
		if s.Activo {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeClienteRepo struct {
	mu       sync.Mutex
	clientes map[uuid.UUID]*model.Cliente
}

func (f *fakeClienteRepo) Get(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clientes[id]
	if !ok {
		return nil, apperrors.NewNotFound("cliente", nil)
	}
	cc := *c
	return &cc, nil
}

func (f *fakeClienteRepo) AcumularPuntos(ctx context.Context, id uuid.UUID, puntos int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clientes[id]
	if !ok {
		return apperrors.NewNotFound("cliente", nil)
	}
	c.Puntos += puntos
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	emitidas []*model.Notificacion
}

func (f *fakeNotifier) Notify(ctx context.Context, n *model.Notificacion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitidas = append(f.emitidas, n)
	return nil
}

func (f *fakeNotifier) tipos() []model.NotificacionTipo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.NotificacionTipo, 0, len(f.emitidas))
	for _, n := range f.emitidas {
		out = append(out, n.Tipo)
	}
	return out
}

type testEnv struct {
	sweeper  *Sweeper
	svc      *reservaService.Service
	reservas *fakeReservaRepo
	horarios *fakeHorarioRepo
	clientes *fakeClienteRepo
	notifier *fakeNotifier
	servicio *model.Servicio
	cliente  *model.Cliente
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	servicio := &model.Servicio{
		ID:              uuid.New(),
		Nombre:          "Lavado Premium",
		Precio:          50000,
		DuracionMinutos: 30,
		PuntosOtorgados: 10,
		Activo:          true,
	}
	cliente := &model.Cliente{
		ID:     uuid.New(),
		Nombre: "Cliente Prueba",
		Email:  "cliente@example.com",
	}

	reservas := newFakeReservaRepo()
	horarios := newFakeHorarioRepo()
	servicios := &fakeServicioRepo{servicios: map[uuid.UUID]*model.Servicio{servicio.ID: servicio}}
	clientes := &fakeClienteRepo{clientes: map[uuid.UUID]*model.Cliente{cliente.ID: cliente}}
	notifier := &fakeNotifier{}

	testLogger := logger.NewLogger(&logger.Config{Output: io.Discard})

	svc := reservaService.NewService(reservas, horarios, servicios, clientes, notifier, testLogger, nil)
	sweeper := NewSweeper(reservas, svc, testLogger, nil)

	return &testEnv{
		sweeper:  sweeper,
		svc:      svc,
		reservas: reservas,
		horarios: horarios,
		clientes: clientes,
		notifier: notifier,
		servicio: servicio,
		cliente:  cliente,
	}
}

func (e *testEnv) setClock(now time.Time) {
	e.svc.SetClock(func() time.Time { return now })
	e.sweeper.SetClock(func() time.Time { return now })
}

// seed inserts a reservation directly, bypassing the booking guard.
func (e *testEnv) seed(estado model.ReservaEstado, creada, programada time.Time) *model.Reserva {
	r := &model.Reserva{
		ID:                 uuid.New(),
		ClienteID:          e.cliente.ID,
		ServicioID:         e.servicio.ID,
		FechaHora:          programada,
		Estado:             estado,
		PrecioFinal:        e.servicio.Precio,
		FechaCreacion:      creada,
		FechaActualizacion: creada,
	}
	if err := e.reservas.Create(context.Background(), r); err != nil {
		panic(err)
	}
	return r
}

func (e *testEnv) estado(t *testing.T, id uuid.UUID) model.ReservaEstado {
	t.Helper()
	r, err := e.reservas.Get(context.Background(), id)
	require.NoError(t, err)
	return r.Estado
}

func TestCancelUnpaidBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// One second inside the threshold and one second past it.
	fresca := env.seed(model.EstadoPendiente, base.Add(-15*time.Minute+time.Second), base.Add(2*time.Hour))
	vencida := env.seed(model.EstadoPendiente, base.Add(-15*time.Minute-time.Second), base.Add(2*time.Hour))

	env.setClock(base)
	res, err := env.sweeper.CancelUnpaid(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 1, res.Transitioned)
	assert.Equal(t, model.EstadoPendiente, env.estado(t, fresca.ID))
	assert.Equal(t, model.EstadoCancelada, env.estado(t, vencida.ID))

	cancelada, err := env.reservas.Get(ctx, vencida.ID)
	require.NoError(t, err)
	assert.Contains(t, cancelada.Notas, "falta de pago después de 15 minutos")
	assert.Contains(t, cancelada.Notas, "cancelacion_sin_pago")
}

func TestCancelUnpaidCustomThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r := env.seed(model.EstadoPendiente, base.Add(-20*time.Minute), base.Add(2*time.Hour))

	env.setClock(base)
	res, err := env.sweeper.CancelUnpaid(ctx, Options{UnpaidMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Candidates)
	assert.Equal(t, model.EstadoPendiente, env.estado(t, r.ID))

	res, err = env.sweeper.CancelUnpaid(ctx, Options{UnpaidMinutes: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Transitioned)
	assert.Equal(t, model.EstadoCancelada, env.estado(t, r.ID))
}

func TestCancelUnpaidIgnoresConfirmadas(t *testing.T) {
	env := newTestEnv(t)

	r := env.seed(model.EstadoConfirmada, base.Add(-1*time.Hour), base.Add(2*time.Hour))

	env.setClock(base)
	res, err := env.sweeper.CancelUnpaid(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Candidates)
	assert.Equal(t, model.EstadoConfirmada, env.estado(t, r.ID))
}

func TestCancelUnpaidDryRun(t *testing.T) {
	env := newTestEnv(t)

	r := env.seed(model.EstadoPendiente, base.Add(-1*time.Hour), base.Add(2*time.Hour))

	env.setClock(base)
	res, err := env.sweeper.CancelUnpaid(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 0, res.Transitioned)
	assert.Equal(t, model.EstadoPendiente, env.estado(t, r.ID))
	assert.Empty(t, env.notifier.tipos())
	assert.Contains(t, res.String(), "dry-run, no changes made")
}

func TestCancelUnpaidIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seed(model.EstadoPendiente, base.Add(-1*time.Hour), base.Add(2*time.Hour))

	env.setClock(base)
	res, err := env.sweeper.CancelUnpaid(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Transitioned)

	// A second pass with the same clock must find nothing.
	res, err = env.sweeper.CancelUnpaid(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Candidates)
	assert.Equal(t, 0, res.Transitioned)
}

func TestCancelUnpaidPerRecordFailureContinues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rota := env.seed(model.EstadoPendiente, base.Add(-1*time.Hour), base.Add(2*time.Hour))
	sana := env.seed(model.EstadoPendiente, base.Add(-1*time.Hour), base.Add(2*time.Hour))
	env.reservas.failUpdates[rota.ID] = fmt.Errorf("connection reset")

	env.setClock(base)
	res, err := env.sweeper.CancelUnpaid(ctx, Options{})
	require.NoError(t, err, "per-record failures must not abort the batch")

	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 1, res.Transitioned)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, model.EstadoCancelada, env.estado(t, sana.ID))
	assert.Equal(t, model.EstadoPendiente, env.estado(t, rota.ID))
}

func TestCancelUnpaidSkipsConcurrentlyTransitioned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r := env.seed(model.EstadoPendiente, base.Add(-1*time.Hour), base.Add(2*time.Hour))

	// Simulate a payment webhook landing between the candidate query
	// and the sweep's write: confirm the stored row behind its back.
	stored, err := env.reservas.Get(ctx, r.ID)
	require.NoError(t, err)
	_, err = model.Apply(stored, model.EventoPagoConfirmado, base, "")
	require.NoError(t, err)
	require.NoError(t, env.reservas.UpdateEstadoFrom(ctx, stored, model.EstadoPendiente))

	env.setClock(base)
	res, err := env.sweeper.CancelUnpaid(ctx, Options{})
	require.NoError(t, err)

	// The candidate query may or may not still see it depending on
	// timing; what matters is the guard: never cancel a confirmed one.
	assert.Equal(t, 0, res.Transitioned)
	assert.Equal(t, model.EstadoConfirmada, env.estado(t, r.ID))
}

func TestConcurrentSweepsTransitionOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ventana := &model.HorarioDisponible{
		ID:               uuid.New(),
		Fecha:            base,
		HoraInicio:       time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		HoraFin:          time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
		Capacidad:        5,
		ReservasActuales: 2,
		Disponible:       true,
	}
	env.horarios.ventanas[ventana.ID] = ventana

	vencida := env.seed(model.EstadoPendiente, base.Add(-16*time.Minute), base.Add(2*time.Hour))
	env.setClock(base)

	// Two sweeps racing on the same reservation, as when a cron run
	// overlaps a slow predecessor. The state guard must let exactly
	// one of them commit the cancellation.
	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.sweeper.CancelUnpaid(ctx, Options{})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.Equal(t, model.EstadoCancelada, env.estado(t, vencida.ID))
	assert.Equal(t, 1, results[0].Transitioned+results[1].Transitioned,
		"exactly one sweep must commit the transition")
	assert.Equal(t, 0, results[0].Failed+results[1].Failed)

	assert.Equal(t, 1, ventana.ReservasActuales, "slot must be released exactly once")

	canceladas := 0
	for _, tipo := range env.notifier.tipos() {
		if tipo == model.NotifReservaCancelada {
			canceladas++
		}
	}
	assert.Equal(t, 1, canceladas, "losing sweep must not emit a duplicate notification")
}

func TestExpireOverdueBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dentro := env.seed(model.EstadoConfirmada, base.Add(-3*time.Hour), base.Add(-2*time.Hour+time.Second))
	vencida := env.seed(model.EstadoConfirmada, base.Add(-4*time.Hour), base.Add(-3*time.Hour))

	env.setClock(base)
	res, err := env.sweeper.ExpireOverdue(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, model.EstadoConfirmada, env.estado(t, dentro.ID))
	// Three hours past with a 30 minute service: the whole window
	// elapsed, so it is a no-show, not a plain cancellation.
	assert.Equal(t, model.EstadoIncumplida, env.estado(t, vencida.ID))
}

func TestExpireOverdueMotivoPorEstado(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Grace elapsed but the service window has not: schedule the
	// reservations barely past grace with a long service duration.
	env.servicio.DuracionMinutos = 600

	pendiente := env.seed(model.EstadoPendiente, base.Add(-5*time.Hour), base.Add(-2*time.Hour-time.Minute))
	confirmada := env.seed(model.EstadoConfirmada, base.Add(-5*time.Hour), base.Add(-2*time.Hour-time.Minute))

	env.setClock(base)
	res, err := env.sweeper.ExpireOverdue(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Transitioned)

	p, err := env.reservas.Get(ctx, pendiente.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoCancelada, p.Estado)
	assert.Contains(t, p.Notas, "falta de pago")

	c, err := env.reservas.Get(ctx, confirmada.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoCancelada, c.Estado)
	assert.Contains(t, c.Notas, "incumplimiento")
}

func TestExpireOverdueIncumplidaWhenWindowElapsed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 30 minute service scheduled 2h31m ago: grace passed and the
	// window passed, so the stricter outcome wins.
	r := env.seed(model.EstadoConfirmada, base.Add(-5*time.Hour), base.Add(-2*time.Hour-31*time.Minute))

	env.setClock(base)
	_, err := env.sweeper.ExpireOverdue(ctx, Options{})
	require.NoError(t, err)

	marcada, err := env.reservas.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoIncumplida, marcada.Estado)
	assert.Contains(t, marcada.Notas, "INCUMPLIDA")
}

func TestAutoStartBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	temprana := env.seed(model.EstadoConfirmada, base.Add(-1*time.Hour), base.Add(-5*time.Minute+time.Second))
	lista := env.seed(model.EstadoConfirmada, base.Add(-1*time.Hour), base.Add(-5*time.Minute-time.Second))

	env.setClock(base)
	res, err := env.sweeper.AutoStart(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Transitioned)
	assert.Equal(t, model.EstadoConfirmada, env.estado(t, temprana.ID))
	assert.Equal(t, model.EstadoEnProceso, env.estado(t, lista.ID))

	iniciada, err := env.reservas.Get(ctx, lista.ID)
	require.NoError(t, err)
	require.NotNil(t, iniciada.FechaInicioServicio)
	assert.Equal(t, base, *iniciada.FechaInicioServicio)
}

func TestAutoStartIgnoresPendientes(t *testing.T) {
	env := newTestEnv(t)

	r := env.seed(model.EstadoPendiente, base.Add(-1*time.Hour), base.Add(-30*time.Minute))

	env.setClock(base)
	res, err := env.sweeper.AutoStart(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Candidates)
	assert.Equal(t, model.EstadoPendiente, env.estado(t, r.ID))
}

func TestAutoCompletePerReservationDeadline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 30 minute service plus 10 minute tolerance: deadline is start+40m.
	dentro := env.seed(model.EstadoEnProceso, base.Add(-2*time.Hour), base.Add(-1*time.Hour))
	inicioDentro := base.Add(-40*time.Minute + time.Second)
	dentro.FechaInicioServicio = &inicioDentro
	require.NoError(t, env.reservas.UpdateEstadoFrom(ctx, dentro, model.EstadoEnProceso))

	vencida := env.seed(model.EstadoEnProceso, base.Add(-2*time.Hour), base.Add(-1*time.Hour))
	inicioVencida := base.Add(-40*time.Minute - time.Second)
	vencida.FechaInicioServicio = &inicioVencida
	require.NoError(t, env.reservas.UpdateEstadoFrom(ctx, vencida, model.EstadoEnProceso))

	env.setClock(base)
	res, err := env.sweeper.AutoComplete(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 1, res.Transitioned)
	assert.Equal(t, model.EstadoEnProceso, env.estado(t, dentro.ID))
	assert.Equal(t, model.EstadoCompletada, env.estado(t, vencida.ID))
}

func TestAutoCompleteAwardsPointsAndReleasesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ventana := &model.HorarioDisponible{
		ID:               uuid.New(),
		Fecha:            base.Add(-1 * time.Hour),
		HoraInicio:       time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		HoraFin:          time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
		Capacidad:        5,
		ReservasActuales: 1,
		Disponible:       true,
	}
	env.horarios.ventanas[ventana.ID] = ventana

	r := env.seed(model.EstadoEnProceso, base.Add(-2*time.Hour), base.Add(-1*time.Hour))
	inicio := base.Add(-50 * time.Minute)
	r.FechaInicioServicio = &inicio
	require.NoError(t, env.reservas.UpdateEstadoFrom(ctx, r, model.EstadoEnProceso))

	env.setClock(base)
	res, err := env.sweeper.AutoComplete(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Transitioned)

	cliente, err := env.clientes.Get(ctx, env.cliente.ID)
	require.NoError(t, err)
	assert.Equal(t, env.servicio.PuntosOtorgados, cliente.Puntos)

	assert.Equal(t, 0, ventana.ReservasActuales, "completion must free the slot")

	// Completing again via a stale copy must not double-decrement.
	res, err = env.sweeper.AutoComplete(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Candidates)
	assert.Equal(t, 0, ventana.ReservasActuales)
}

func TestRunAllExecutesEveryJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sinPago := env.seed(model.EstadoPendiente, base.Add(-30*time.Minute), base.Add(4*time.Hour))
	porIniciar := env.seed(model.EstadoConfirmada, base.Add(-3*time.Hour), base.Add(-10*time.Minute))
	enCurso := env.seed(model.EstadoEnProceso, base.Add(-3*time.Hour), base.Add(-2*time.Hour))
	inicio := base.Add(-1 * time.Hour)
	enCurso.FechaInicioServicio = &inicio
	require.NoError(t, env.reservas.UpdateEstadoFrom(ctx, enCurso, model.EstadoEnProceso))

	env.setClock(base)
	results, err := env.sweeper.RunAll(ctx, Options{})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, JobCancelUnpaid, results[0].Job)
	assert.Equal(t, JobExpireOverdue, results[1].Job)
	assert.Equal(t, JobAutoStart, results[2].Job)
	assert.Equal(t, JobAutoComplete, results[3].Job)

	assert.Equal(t, model.EstadoCancelada, env.estado(t, sinPago.ID))
	assert.Equal(t, model.EstadoEnProceso, env.estado(t, porIniciar.ID))
	assert.Equal(t, model.EstadoCompletada, env.estado(t, enCurso.ID))
}

func TestSweepNotificationsEmitted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seed(model.EstadoPendiente, base.Add(-30*time.Minute), base.Add(4*time.Hour))

	env.setClock(base)
	_, err := env.sweeper.CancelUnpaid(ctx, Options{})
	require.NoError(t, err)

	tipos := env.notifier.tipos()
	require.Len(t, tipos, 1)
	assert.Equal(t, model.NotifReservaCancelada, tipos[0])
}
