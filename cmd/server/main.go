/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the leave management server. Handles
	configuration, store hydration, dependency injection, and graceful
	shutdown.

STARTUP SEQUENCE:
 1. Parse command-line flags
 2. Initialize SQLite store
 3. Hydrate the in-memory core from the store
 4. Optionally seed a demo organization (-seed, empty database only)
 5. Configure HTTP router
 6. Start server with graceful shutdown

COMMAND-LINE FLAGS:

	-port        HTTP server port (default: 8080)
	-db          SQLite database path (default: leave.db)
	             Use ":memory:" for an in-memory database
	-jwt-secret  HMAC secret for session tokens (or JWT_SECRET env var)
	-seed        Seed demo employees, leave types and holidays

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop accepting new connections
	2. Wait for active requests to complete (30s timeout)
	3. Close database connection
	4. Exit

EXAMPLES:

	# Run with file database and seed data
	./server -db="./data/leave.db" -seed -jwt-secret="change-me"

	# Run with in-memory database
	./server -db=":memory:" -seed -jwt-secret="dev"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "leave.db", "SQLite database path")
	jwtSecret := flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "HMAC secret for session tokens")
	seed := flag.Bool("seed", false, "seed demo data into an empty database")
	flag.Parse()

	if *jwtSecret == "" {
		log.Fatal("A JWT secret is required: pass -jwt-secret or set JWT_SECRET")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Build the core and hydrate it from the store
	engine := leave.NewEngine(leave.NewLedger(), leave.NewDirectory(), leave.NewCalendar())
	ctx := context.Background()
	if err := hydrate(ctx, store, engine); err != nil {
		log.Fatalf("Failed to hydrate from database: %v", err)
	}

	if *seed {
		if err := seedDemoData(ctx, store, engine); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	handler := api.NewHandler(engine, store, *jwtSecret)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// hydrate replays the persisted state into the in-memory core.
// Order matters: directory and calendar first, then balances, then
// requests (pending ones re-attach their reservations to balances).
func hydrate(ctx context.Context, store *sqlite.Store, engine *leave.Engine) error {
	employees, err := store.ListEmployees(ctx)
	if err != nil {
		return fmt.Errorf("load employees: %w", err)
	}
	for _, e := range employees {
		if err := engine.Directory.PutEmployee(e); err != nil {
			return fmt.Errorf("restore employee %s: %w", e.ID, err)
		}
	}

	leaveTypes, err := store.ListLeaveTypes(ctx)
	if err != nil {
		return fmt.Errorf("load leave types: %w", err)
	}
	for _, lt := range leaveTypes {
		engine.PutLeaveType(lt)
	}

	holidays, err := store.ListHolidays(ctx)
	if err != nil {
		return fmt.Errorf("load holidays: %w", err)
	}
	for _, h := range holidays {
		engine.Calendar.Add(h)
	}

	delegations, err := store.ListDelegations(ctx)
	if err != nil {
		return fmt.Errorf("load delegations: %w", err)
	}
	for _, d := range delegations {
		if !d.Active {
			continue
		}
		if err := engine.Directory.CreateDelegation(d); err != nil {
			return fmt.Errorf("restore delegation %s: %w", d.ID, err)
		}
	}

	balances, err := store.ListBalances(ctx)
	if err != nil {
		return fmt.Errorf("load balances: %w", err)
	}
	for _, b := range balances {
		if err := engine.Ledger.Restore(b); err != nil {
			return fmt.Errorf("restore balance %s: %w", b.Key, err)
		}
	}

	requests, err := store.ListRequests(ctx)
	if err != nil {
		return fmt.Errorf("load requests: %w", err)
	}
	for _, r := range requests {
		if err := engine.RestoreRequest(r); err != nil {
			return fmt.Errorf("restore request %s: %w", r.ID, err)
		}
	}

	log.Printf("Hydrated %d employees, %d leave types, %d balances, %d requests",
		len(employees), len(leaveTypes), len(balances), len(requests))
	return nil
}

// seedDemoData creates a small demo org. It is a no-op when any
// employee already exists so a restart with -seed does not duplicate.
func seedDemoData(ctx context.Context, store *sqlite.Store, engine *leave.Engine) error {
	if len(engine.Directory.Employees()) > 0 {
		log.Println("Seed skipped: database already has employees")
		return nil
	}

	hash, err := auth.HashPassword("password123")
	if err != nil {
		return err
	}
	now := leave.DateOf(time.Now())

	employees := []leave.Employee{
		{ID: uuid.NewString(), Email: "admin@example.com", FullName: "Alex Admin", Role: leave.RoleHRAdmin, Department: "People"},
		{ID: uuid.NewString(), Email: "director@example.com", FullName: "Dana Director", Role: leave.RoleManager, Department: "Engineering"},
		{ID: uuid.NewString(), Email: "manager@example.com", FullName: "Morgan Manager", Role: leave.RoleManager, Department: "Engineering"},
		{ID: uuid.NewString(), Email: "employee@example.com", FullName: "Evan Employee", Role: leave.RoleEmployee, Department: "Engineering"},
	}
	employees[2].ManagerID = employees[1].ID
	employees[3].ManagerID = employees[2].ID
	for i := range employees {
		employees[i].PasswordHash = hash
		employees[i].HireDate = now
		employees[i].Active = true
		if err := engine.Directory.PutEmployee(employees[i]); err != nil {
			return err
		}
		if err := store.SaveEmployee(ctx, employees[i]); err != nil {
			return err
		}
	}

	leaveTypes := []leave.LeaveType{
		{ID: "annual", Name: "Annual Leave", AnnualQuota: leave.DaysOf(25), RequiresHRReview: true, HRReviewThreshold: leave.DaysOf(10), IsPaid: true, Active: true},
		{ID: "sick", Name: "Sick Leave", AnnualQuota: leave.DaysOf(10), RequiresDocumentation: true, IsPaid: true, Active: true},
		{ID: "unpaid", Name: "Unpaid Leave", AnnualQuota: leave.DaysOf(30), RequiresHRReview: true, Active: true},
	}
	for _, lt := range leaveTypes {
		engine.PutLeaveType(lt)
		if err := store.SaveLeaveType(ctx, lt); err != nil {
			return err
		}
	}

	year := time.Now().Year()
	holidays := []leave.Holiday{
		{ID: uuid.NewString(), Date: leave.Date(year, time.January, 1), Name: "New Year's Day"},
		{ID: uuid.NewString(), Date: leave.Date(year, time.July, 4), Name: "Independence Day"},
		{ID: uuid.NewString(), Date: leave.Date(year, time.December, 25), Name: "Christmas Day"},
	}
	for _, h := range holidays {
		engine.Calendar.Add(h)
		if err := store.SaveHoliday(ctx, h); err != nil {
			return err
		}
	}

	for _, e := range employees {
		for _, lt := range leaveTypes {
			key := leave.BalanceKey{EmployeeID: e.ID, LeaveTypeID: lt.ID, Year: year}
			rec, err := engine.Ledger.InitializeYear(key, lt.AnnualQuota)
			if err != nil {
				return err
			}
			if err := store.SaveBalance(ctx, rec); err != nil {
				return err
			}
		}
	}

	log.Printf("Seeded %d employees, %d leave types, %d holidays (password: password123)",
		len(employees), len(leaveTypes), len(holidays))
	return nil
}
