// Package dues provides an embeddable membership-dues engine for Go
// applications.
//
// Dues is designed as a library, not a service. Import it directly into
// your Go application. It manages the recurring fee lifecycle for gym-like
// organizations:
//
//   - Periodic fee generation, one record per member per month
//   - Payment recording with automatic rollover to the next period
//   - A denormalized per-member fee history kept consistent with the fee
//     ledger through self-healing reads, without transactions
//   - Read-time fee status refresh (paid members come due again)
//   - Bulk repricing of open fees when the default amount changes
//   - Expense tracking as a supplemental ledger
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/dues"
//	    "github.com/xraph/dues/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create engine
//	engine := dues.New(store)
//
//	// Start the engine (runs migrations, initializes plugins)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Core Concepts
//
// Members belong to a gym and accrue one fee per billing period:
//
//	m, err := engine.CreateMember(ctx, &member.Member{
//	    Name:  "Asad Khan",
//	    Email: "asad@example.com",
//	    GymID: gymID,
//	})
//
// Creation seeds the current period's fee at the resolved amount (owner
// settings override, then gym default). Recording a payment marks the fee
// paid and rolls the member forward:
//
//	paid, err := engine.RecordPayment(ctx, feeID, nil)
//
// The next period's fee keeps the paid fee's due day-of-month, clamped to
// the last day of short months, and is anchored to the fee's period, so a
// late payment does not shift the schedule.
//
// # Consistency Model
//
// The fee ledger is the system of record; the member's FeeHistory is a
// cache of it. Writes land on the ledger first, and every read of a
// member's fees repairs drift between the two (SyncMemberFees). Creation
// races collapse onto one record per (member, period) via a unique
// constraint.
//
// All monetary amounts use integer arithmetic via the Money type. Fee
// amounts are whole rupees: types.PKR(3000) is Rs 3000.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	mbr_01h2xcejqtf2nbrexx3vqjhp41  // Member ID
//	fee_01h2xcejqtf2nbrexx3vqjhp41  // Fee ID
//	gym_01h455vb4pex5vsknk084sn02q  // Gym ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package dues
