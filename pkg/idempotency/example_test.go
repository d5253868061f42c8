package idempotency

import (
	"context"
	"fmt"
	"time"
)

func ExampleGuard_Claim() {
	ctx := context.Background()
	guard, _ := NewGuard(newMemoryStore(), 10*time.Minute)

	for _, attempt := range []string{"first tap", "double tap"} {
		claimed, _ := guard.Claim(ctx, CheckoutScope("80351110224678912"), "buy-7f3a")
		if !claimed {
			fmt.Println(attempt + ": already submitted")
			continue
		}
		fmt.Println(attempt + ": checkout runs")
	}
	// Output:
	// first tap: checkout runs
	// double tap: already submitted
}
