package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"ventafacil/internal/apiclient"
	"ventafacil/internal/apierror"
	"ventafacil/internal/caja"
	"ventafacil/internal/infra"
	"ventafacil/internal/permission"
	"ventafacil/internal/pos"
	"ventafacil/internal/session"

	"github.com/shopspring/decimal"
)

const helpText = `Comandos:
  login <usuario> [recordar]          inicia sesión (pide la contraseña)
  logout | yo | permisos
  caja                                estado de la caja
  abrir <fondo>                       abre la caja
  cerrar <contado> [nota...]          cierra la caja y exporta el corte
  historial                           cortes anteriores
  reportes                            ventas y ganancia del día y del mes
  venta <metodo> <recibido> <id:cant:precio[:desc]>...
  ventas | detalle <id> | cancelar <id>
  gasto <metodo> <categoria> <monto> <descripcion...>
  gastos | borrar-gasto <id>
  usuarios | privilegios <userId>
  desactivar <userId> | activar <userId>
  otorgar <userId> <PERMISO> | revocar <userId> <PERMISO>
  salir`

type shell struct {
	in  io.Reader
	out io.Writer

	mgr      *session.Manager
	client   *apiclient.Client
	engine   *caja.Engine
	exporter *infra.PDFExporter
	guard    pos.Guard
	sales    *pos.Sales
	expenses *pos.Expenses
	admin    *pos.Admin
	reports  *pos.Reports

	scanner *bufio.Scanner
}

var errQuit = errors.New("quit")

func (s *shell) run(ctx context.Context) {
	s.scanner = bufio.NewScanner(s.in)
	fmt.Fprintln(s.out, "Venta Fácil. Escribe 'ayuda' para ver los comandos.")
	for {
		fmt.Fprint(s.out, s.prompt())
		if !s.scanner.Scan() || ctx.Err() != nil {
			return
		}
		args := strings.Fields(s.scanner.Text())
		if len(args) == 0 {
			continue
		}
		err := s.exec(ctx, args[0], args[1:])
		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			fmt.Fprintln(s.out, "✗", apierror.UserMessage(err))
		}
	}
}

func (s *shell) prompt() string {
	if cur, ok := s.mgr.Current(); ok {
		return cur.DisplayName + "> "
	}
	return "> "
}

func (s *shell) readLine(label string) string {
	fmt.Fprint(s.out, label)
	if !s.scanner.Scan() {
		return ""
	}
	return s.scanner.Text()
}

// confirm blocks on a yes/no answer. Anything other than yes declines.
func (s *shell) confirm(question string) bool {
	switch strings.ToLower(strings.TrimSpace(s.readLine(question + " [s/N]: "))) {
	case "s", "si", "sí", "y", "yes":
		return true
	}
	fmt.Fprintln(s.out, "Operación cancelada")
	return false
}

func (s *shell) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "ayuda", "help":
		fmt.Fprintln(s.out, helpText)
		return nil
	case "salir", "exit":
		return errQuit
	case "login":
		return s.login(ctx, args)
	}

	if _, ok := s.mgr.Current(); !ok {
		return apierror.E(apierror.Authentication, "posctl", "Inicia sesión primero", nil)
	}

	switch cmd {
	case "logout":
		s.mgr.Logout()
		fmt.Fprintln(s.out, "Sesión cerrada")
	case "yo":
		cur, _ := s.mgr.Current()
		fmt.Fprintf(s.out, "%s (%s), credenciales %s\n", cur.DisplayName, cur.Role.APIName(), cur.Scope)
	case "permisos":
		cur, _ := s.mgr.Current()
		for _, k := range cur.Permissions.Keys() {
			fmt.Fprintf(s.out, "  %-24s %s\n", k, k.Description())
		}
	case "caja":
		return s.drawerStatus(ctx)
	case "abrir":
		return s.open(ctx, args)
	case "cerrar":
		return s.close(ctx, args)
	case "historial":
		return s.history(ctx)
	case "venta":
		return s.sale(ctx, args)
	case "ventas":
		return s.listSales(ctx)
	case "detalle":
		return s.saleDetail(ctx, args)
	case "cancelar":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		if !s.confirm(fmt.Sprintf("¿Cancelar la venta #%d? El importe se devuelve de la caja.", id)) {
			return nil
		}
		if err := s.sales.Cancel(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Venta cancelada")
	case "gasto":
		return s.expense(ctx, args)
	case "gastos":
		return s.listExpenses(ctx)
	case "borrar-gasto":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		if !s.confirm(fmt.Sprintf("¿Eliminar el gasto #%d?", id)) {
			return nil
		}
		if err := s.expenses.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Gasto eliminado")
	case "usuarios":
		return s.listUsers(ctx)
	case "privilegios":
		return s.userPrivileges(ctx, args)
	case "otorgar", "revocar":
		if len(args) != 2 {
			return usage(cmd + " <userId> <PERMISO>")
		}
		id, err := idArg(args[:1])
		if err != nil {
			return err
		}
		key := permission.Key(strings.ToUpper(args[1]))
		if err := s.admin.SetPermission(ctx, id, key, cmd == "otorgar"); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Permiso actualizado")
	case "desactivar":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		if !s.confirm(fmt.Sprintf("¿Desactivar al usuario %d? Ya no podrá iniciar sesión.", id)) {
			return nil
		}
		if err := s.admin.DeactivateUser(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Usuario desactivado")
	case "activar":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		if err := s.admin.ReactivateUser(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Usuario reactivado")
	case "reportes":
		return s.dashboard(ctx)
	default:
		return usage("comando desconocido, escribe 'ayuda'")
	}
	return nil
}

// ── Session ──────────────────────────────────────────────────────────────────

func (s *shell) login(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("login <usuario> [recordar]")
	}
	creds := session.Credentials{
		Username: args[0],
		Password: s.readLine("Contraseña: "),
		Remember: len(args) > 1 && args[1] == "recordar",
	}
	sess, err := s.mgr.Login(ctx, creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Bienvenido, %s\n", sess.DisplayName)
	return s.drawerStatus(ctx)
}

// ── Drawer ───────────────────────────────────────────────────────────────────

func (s *shell) drawerStatus(ctx context.Context) error {
	route, err := s.engine.Route(ctx)
	if err != nil {
		return err
	}
	if route == caja.RouteOpenCash {
		fmt.Fprintln(s.out, "No hay caja abierta. Usa 'abrir <fondo>'.")
		return nil
	}
	if err := s.guard.Require(permission.VistaCorte); err != nil {
		fmt.Fprintln(s.out, "Caja abierta")
		return nil
	}
	sess, err := s.engine.GetActiveSession(ctx)
	if err != nil || sess == nil {
		return err
	}
	printSession(s.out, sess)
	return nil
}

func printSession(out io.Writer, sess *caja.RegisterSession) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Corte N°\t%d\n", sess.ID)
	fmt.Fprintf(w, "Cajero\t%s\n", sess.CashierName)
	fmt.Fprintf(w, "Apertura\t%s\n", sess.OpenedAt.Format("02/01/2006 15:04"))
	fmt.Fprintf(w, "Fondo inicial\t%s\n", caja.FormatMoney(sess.OpeningFloat))
	fmt.Fprintf(w, "Ventas efectivo\t%s\n", caja.FormatMoney(sess.CashSales))
	fmt.Fprintf(w, "Ventas tarjeta\t%s\n", caja.FormatMoney(sess.CardSales))
	fmt.Fprintf(w, "Ventas transferencia\t%s\n", caja.FormatMoney(sess.TransferSales))
	fmt.Fprintf(w, "Gastos efectivo\t%s\n", caja.FormatMoney(sess.CashExpenses))
	fmt.Fprintf(w, "Devoluciones\t%s\n", caja.FormatMoney(sess.Refunds))
	fmt.Fprintf(w, "Transacciones\t%d\n", sess.Transactions)
	fmt.Fprintf(w, "Efectivo esperado\t%s\n", caja.FormatMoney(caja.ComputeExpected(*sess)))
	_ = w.Flush()
}

func (s *shell) open(ctx context.Context, args []string) error {
	if err := s.guard.Require(permission.AbrirCaja); err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("abrir <fondo>")
	}
	amount, err := caja.ParseAmount(args[0])
	if err != nil {
		return err
	}
	res, err := s.engine.OpenSession(ctx, amount)
	if err != nil {
		return err
	}
	if res.AlreadyActive {
		fmt.Fprintf(s.out, "Ya había una caja abierta (corte N° %d); se usará esa.\n", res.Session.ID)
		return nil
	}
	fmt.Fprintf(s.out, "Caja abierta con %s\n", caja.FormatMoney(res.Session.OpeningFloat))
	return nil
}

func (s *shell) close(ctx context.Context, args []string) error {
	if err := s.guard.Require(permission.CerrarCaja); err != nil {
		return err
	}
	if len(args) == 0 {
		return usage("cerrar <contado> [nota...]")
	}
	counted, err := caja.ParseAmount(args[0])
	if err != nil {
		return err
	}
	if !s.confirm(fmt.Sprintf("¿Cerrar la caja con %s contados? No se puede deshacer.", caja.FormatMoney(decimal.NewFromFloat(counted)))) {
		return nil
	}
	rec, err := s.engine.CloseSession(ctx, counted, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Caja cerrada. Esperado %s, contado %s. %s\n",
		caja.FormatMoney(rec.Expected), caja.FormatMoney(rec.Counted), rec.Label())
	if rec.ExportErr != nil {
		fmt.Fprintln(s.out, "⚠", apierror.UserMessage(rec.ExportErr))
	} else if s.exporter.LastPath != "" {
		fmt.Fprintln(s.out, "Corte guardado en", s.exporter.LastPath)
	}
	return nil
}

func (s *shell) history(ctx context.Context) error {
	if err := s.guard.Require(permission.VerReportes); err != nil {
		return err
	}
	rows, err := s.client.BalanceHistory(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N°\tCajero\tApertura\tCierre\tEsperado\tContado\tDiferencia")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Name, r.OpenDate, strOr(r.CloseDate), moneyOr(r.ExpectedCash), moneyOr(r.CountedCash), moneyOr(r.Difference))
	}
	return w.Flush()
}

func (s *shell) dashboard(ctx context.Context) error {
	dash, err := s.reports.Dashboard(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tHoy\tMes")
	fmt.Fprintf(w, "Transacciones\t%d\t%d\n", dash.Sales.DailyTransactions, dash.Sales.MonthlyTransactions)
	fmt.Fprintf(w, "Vendido\t%s\t%s\n", caja.FormatMoney(dash.Sales.DailyTotal), caja.FormatMoney(dash.Sales.MonthlyTotal))
	fmt.Fprintf(w, "Ganancia\t%s\t%s\n", caja.FormatMoney(dash.Profit.DayAmount), caja.FormatMoney(dash.Profit.MonthAmount))
	return w.Flush()
}

// ── Sales ────────────────────────────────────────────────────────────────────

func (s *shell) sale(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usage("venta <metodo> <recibido> <id:cant:precio[:desc]>...")
	}
	method, err := pos.ParsePayMethod(args[0])
	if err != nil {
		return err
	}
	in := pos.SaleInput{Method: method}
	if method == pos.Cash {
		received, err := caja.ParseAmount(args[1])
		if err != nil {
			return err
		}
		in.CashReceived = decimal.NewFromFloat(received)
	}
	for _, tok := range args[2:] {
		line, err := parseSaleLine(tok)
		if err != nil {
			return err
		}
		in.Lines = append(in.Lines, line)
	}

	v, q, err := s.sales.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Venta #%d registrada. Total %s", v.ID, caja.FormatMoney(q.Total))
	if method == pos.Cash {
		fmt.Fprintf(s.out, ", cambio %s", caja.FormatMoney(q.Change))
	}
	fmt.Fprintln(s.out)
	return nil
}

// parseSaleLine reads "id:cantidad:precio[:descripcion]".
func parseSaleLine(tok string) (pos.SaleLine, error) {
	parts := strings.SplitN(tok, ":", 4)
	if len(parts) < 3 {
		return pos.SaleLine{}, usage("producto inválido: " + tok)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return pos.SaleLine{}, usage("id de producto inválido: " + parts[0])
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil {
		return pos.SaleLine{}, usage("cantidad inválida: " + parts[1])
	}
	price, err := decimal.NewFromString(parts[2])
	if err != nil {
		return pos.SaleLine{}, usage("precio inválido: " + parts[2])
	}
	line := pos.SaleLine{ProductID: id, Quantity: qty, Price: price}
	if len(parts) == 4 {
		line.Description = strings.ReplaceAll(parts[3], "_", " ")
	}
	return line, nil
}

func (s *shell) listSales(ctx context.Context) error {
	rows, err := s.sales.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N°\tFecha\tMétodo\tTotal\tEstado")
	for _, v := range rows {
		estado := "activa"
		if v.Status == 0 {
			estado = "cancelada"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", v.ID, v.Date, v.PayMethod, caja.FormatMoney(v.Total), estado)
	}
	return w.Flush()
}

func (s *shell) saleDetail(ctx context.Context, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	items, err := s.sales.Detail(ctx, id)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\tx%d\t%s\n", it.ID, it.Description, it.Quantity, caja.FormatMoney(it.Subtotal))
	}
	return w.Flush()
}

// ── Expenses ─────────────────────────────────────────────────────────────────

func (s *shell) expense(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return usage("gasto <metodo> <categoria> <monto> <descripcion...>")
	}
	method, err := pos.ParsePayMethod(args[0])
	if err != nil {
		return err
	}
	amount, err := caja.ParseAmount(args[2])
	if err != nil {
		return err
	}
	g, err := s.expenses.Register(ctx, pos.ExpenseInput{
		Description: strings.Join(args[3:], " "),
		Amount:      decimal.NewFromFloat(amount),
		Category:    args[1],
		Method:      method,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Gasto #%d registrado por %s\n", g.ID, caja.FormatMoney(g.Amount))
	return nil
}

func (s *shell) listExpenses(ctx context.Context) error {
	rows, err := s.expenses.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N°\tFecha\tCategoría\tMétodo\tMonto\tDescripción")
	for _, g := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", g.ID, g.RegisterDate, g.Category, g.PayMethod, caja.FormatMoney(g.Amount), g.Description)
	}
	return w.Flush()
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *shell) listUsers(ctx context.Context) error {
	rows, err := s.admin.Users(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUsuario\tNombre\tRol\tActivo")
	for _, u := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%v\n", u.ID, u.User, u.Name, u.PaternalLastname, u.Role, u.Status == 1)
	}
	return w.Flush()
}

func (s *shell) userPrivileges(ctx context.Context, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	up, err := s.admin.UserPermissions(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s %s (%s)\n", up.User.Name, up.User.PaternalLastname, up.User.Role)
	for _, p := range up.Permissions {
		fmt.Fprintf(s.out, "  %-24s %s\n", p.Key, p.Description)
	}
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func usage(msg string) error {
	return apierror.E(apierror.Validation, "posctl", msg, nil)
}

func idArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, usage("falta el id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, usage("id inválido: " + args[0])
	}
	return id, nil
}

func strOr(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func moneyOr(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return caja.FormatMoney(*d)
}
