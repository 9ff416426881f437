package worker

// corte_worker.go
// Processes QueueCorte jobs: rebuilds the closing report of a session,
// renders it to PDF and mails it to the configured recipient.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ventafacil/internal/caja"
	"ventafacil/internal/infra"

	"github.com/rs/zerolog/log"
)

// ReportSource rebuilds the report of a closed session.
type ReportSource interface {
	Reporte(ctx context.Context, sesionID int64) (*caja.Report, error)
}

// CorteMailer sends a closing report; *infra.Mailer implements it.
type CorteMailer interface {
	Configured() bool
	SendCorte(to, subject, body, pdfPath string) error
}

type CorteWorkerConfig struct {
	BusinessName string
	PDFDir       string
	To           string
}

// CorteWorker sends SMTP through a circuit breaker so a dead mail server
// fails fast and the job goes back to the queue.
type CorteWorker struct {
	reports ReportSource
	mailer  CorteMailer
	cb      *infra.CircuitBreaker
	cfg     CorteWorkerConfig
	render  func(r caja.Report, businessName, dir string) (string, error)
}

func NewCorteWorker(reports ReportSource, mailer CorteMailer, cb *infra.CircuitBreaker, cfg CorteWorkerConfig) *CorteWorker {
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "smtp"})
	}
	return &CorteWorker{reports: reports, mailer: mailer, cb: cb, cfg: cfg, render: infra.GenerateCortePDF}
}

// Process handles a single corte job:
//  1. Parse CorteJobPayload
//  2. Rebuild the report from the ledger
//  3. Generate the PDF under PDFDir
//  4. Mail it when SMTP and a recipient are configured
func (w *CorteWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CorteJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("corte_worker: invalid payload: %w", err)
	}

	rep, err := w.reports.Reporte(ctx, payload.SesionID)
	if err != nil {
		return fmt.Errorf("corte_worker: report %d: %w", payload.SesionID, err)
	}

	path, err := w.render(*rep, w.cfg.BusinessName, w.cfg.PDFDir)
	if err != nil {
		return fmt.Errorf("corte_worker: pdf %d: %w", payload.SesionID, err)
	}
	logger := log.With().Int64("session_id", payload.SesionID).Str("pdf", path).Logger()

	if w.cfg.To == "" || w.mailer == nil || !w.mailer.Configured() {
		logger.Info().Msg("corte_worker: pdf stored, email not configured")
		return nil
	}

	subject := fmt.Sprintf("Corte de caja #%d - %s", rep.Session.ID, rep.Record.Label())
	err = w.cb.Execute(ctx, func(context.Context) error {
		return w.mailer.SendCorte(w.cfg.To, subject, corteBody(*rep, w.cfg.BusinessName), path)
	})
	if err != nil {
		return fmt.Errorf("corte_worker: send: %w", err)
	}
	logger.Info().Str("to", w.cfg.To).Msg("corte_worker: report sent")
	return nil
}

func corteBody(r caja.Report, businessName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nCorte de caja #%d\n\n", businessName, r.Session.ID)
	fmt.Fprintf(&b, "Cajero: %s\n", r.Session.CashierName)
	fmt.Fprintf(&b, "Fondo inicial: %s\n", caja.FormatMoney(r.Session.OpeningFloat))
	fmt.Fprintf(&b, "Ventas en efectivo: %s\n", caja.FormatMoney(r.Session.CashSales))
	fmt.Fprintf(&b, "Ventas con tarjeta: %s\n", caja.FormatMoney(r.Session.CardSales))
	fmt.Fprintf(&b, "Ventas por transferencia: %s\n", caja.FormatMoney(r.Session.TransferSales))
	fmt.Fprintf(&b, "Egresos en efectivo: %s\n", caja.FormatMoney(r.Session.CashExpenses))
	fmt.Fprintf(&b, "Devoluciones: %s\n\n", caja.FormatMoney(r.Session.Refunds))
	fmt.Fprintf(&b, "Efectivo esperado: %s\n", caja.FormatMoney(r.Record.Expected))
	fmt.Fprintf(&b, "Efectivo contado: %s\n", caja.FormatMoney(r.Record.Counted))
	fmt.Fprintf(&b, "Resultado: %s\n", r.Record.Label())
	if r.Record.Note != "" {
		fmt.Fprintf(&b, "Nota: %s\n", r.Record.Note)
	}
	return b.String()
}
