package email

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dropDatabas3/paperauth/internal/metrics"
	"github.com/dropDatabas3/paperauth/internal/observability/logger"
	"github.com/sethvargo/go-retry"
)

// ErrQueueFull indica que la cola de entrega está llena; el caller lo trata
// como falla de entrega inmediata.
var ErrQueueFull = errors.New("email: delivery queue full")

// Job es una unidad de entrega encolada. OnResult se invoca exactamente una
// vez al terminar, con nil si el mensaje fue entregado o el error definitivo
// si no (permanente o reintentos agotados). El estado de reintento vive acá,
// no en los lifecycle managers.
type Job struct {
	Msg      Message
	OnResult func(err error)
}

// DispatcherConfig configura el dispatcher de entregas.
type DispatcherConfig struct {
	Workers     int           // default 2
	QueueSize   int           // default 64
	MaxAttempts uint64        // default 5 (intentos totales, no reintentos)
	BaseDelay   time.Duration // default 1s; se duplica por intento
	MaxElapsed  time.Duration // tope acumulado de reintentos; default 2m
}

func (c *DispatcherConfig) defaults() {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = 2 * time.Minute
	}
}

// Dispatcher entrega mensajes en background con clasificación de fallas:
// las transitorias se reintentan con backoff exponencial hasta MaxAttempts,
// las permanentes cortan de inmediato.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig

	jobs chan Job
	wg   sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewDispatcher crea un dispatcher sin arrancar los workers.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	cfg.defaults()
	return &Dispatcher{
		sender: sender,
		cfg:    cfg,
		jobs:   make(chan Job, cfg.QueueSize),
	}
}

// Start lanza los workers. Los jobs en vuelo corren hasta su propio timeout
// aunque ctx se cancele entre reintentos.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		for i := 0; i < d.cfg.Workers; i++ {
			d.wg.Add(1)
			go d.worker(ctx)
		}
	})
}

// Close deja de aceptar jobs y espera a que los workers drenen la cola.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

// Enqueue encola un job sin bloquear. Si la cola está llena retorna
// ErrQueueFull y OnResult no se invoca.
func (d *Dispatcher) Enqueue(job Job) error {
	select {
	case d.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for job := range d.jobs {
		err := d.Deliver(ctx, job.Msg)
		if job.OnResult != nil {
			job.OnResult(err)
		}
	}
}

// Deliver entrega un mensaje de forma síncrona aplicando la política de
// reintentos. Exportado para los flujos que esperan el resultado (reset);
// los workers lo usan para los jobs encolados.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) error {
	log := logger.From(ctx).With(
		logger.Component("email.dispatcher"),
		logger.String("kind", string(msg.Kind)),
		logger.String("to", msg.To),
	)

	ctx, cancel := context.WithTimeout(ctx, d.cfg.MaxElapsed)
	defer cancel()

	attempt := 0
	backoff := retry.WithMaxRetries(d.cfg.MaxAttempts-1, retry.NewExponential(d.cfg.BaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		sendErr := d.sender.Send(msg.To, msg.Subject, msg.HTMLBody, msg.TextBody)
		if sendErr == nil {
			return nil
		}
		diag := Diagnose(sendErr)
		if diag.Temporary {
			metrics.EmailRetries.WithLabelValues(string(msg.Kind)).Inc()
			log.Warn("transient delivery failure, will retry",
				logger.Err(sendErr),
				logger.String("diag_code", diag.Code),
				logger.Int("attempt", attempt),
			)
			return retry.RetryableError(sendErr)
		}
		log.Error("permanent delivery failure",
			logger.Err(sendErr),
			logger.String("diag_code", diag.Code),
			logger.Int("attempt", attempt),
		)
		return sendErr
	})

	if err != nil {
		diag := Diagnose(err)
		metrics.EmailFailed.WithLabelValues(string(msg.Kind), diag.Code).Inc()
		log.Error("delivery failed", logger.Err(err), logger.Int("attempts", attempt))
		return err
	}

	metrics.EmailDelivered.WithLabelValues(string(msg.Kind)).Inc()
	log.Info("email delivered", logger.Int("attempts", attempt))
	return nil
}
