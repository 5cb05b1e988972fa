package dues_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/xraph/dues"
	"github.com/xraph/dues/gym"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/store/memory"
	"github.com/xraph/dues/types"
	"github.com/xraph/dues/user"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the engine
		engine := dues.New(store,
			dues.WithLogger(slog.Default()),
			dues.WithRepriceOnSettings(true),
		)

		// Start the engine
		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		// Register the owner and their gym
		owner, err := engine.CreateUser(ctx, &user.User{
			Name:  "Hamza",
			Email: "hamza@example.com",
			Role:  user.RoleOwner,
		})
		if err != nil {
			t.Fatal(err)
		}

		g, err := engine.CreateGym(ctx, &gym.Gym{
			Name:       "Downtown Fitness",
			Location:   "Karachi",
			OwnerID:    owner.ID,
			MonthlyFee: types.PKR(3000), // Rs 3000 per month
		})
		if err != nil {
			t.Fatal(err)
		}

		// Enroll a member; the current period's fee is seeded automatically
		m, err := engine.CreateMember(ctx, &member.Member{
			Name:  "Asad Khan",
			Email: "asad@example.com",
			GymID: g.ID,
		})
		if err != nil {
			t.Fatal(err)
		}

		// Record the payment; the next period's fee rolls over automatically
		paid, err := engine.RecordPayment(ctx, m.FeeHistory[0].FeeID, nil)
		if err != nil {
			t.Fatal(err)
		}

		log.Printf("Fee %s settled: %s\n", paid.Period, paid.Amount.String())
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.PKR(3000)   // Rs 3000
		_ = types.USD(4900)   // $49.00
		_ = types.Zero("pkr") // Rs 0

		// Arithmetic
		m1 := types.PKR(1000)
		m2 := types.PKR(2000)
		_ = m1.Add(m2)     // Rs 3000
		_ = m1.Multiply(3) // Rs 3000

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "Rs 1000"
		_ = m1.FormatMajor() // "1000"
	})
}
