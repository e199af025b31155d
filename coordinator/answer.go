package coordinator

import (
	"fmt"

	"nlsqld/executor"
)

// fastPathAnswer renders a fast path's single row directly, without a
// second LLM call, per §4.6 step 3 ("format the answer directly").
func fastPathAnswer(fp FastPath, rows []executor.Row) string {
	if len(rows) == 0 {
		return "No data found."
	}
	row := rows[0]

	switch fp.Domain {
	case "lending":
		return fmt.Sprintf("Latest %s utilization is %v%%.", fp.Symbol, row["utilization_pct"])
	case "price":
		return fmt.Sprintf("Latest %s price is $%v.", fp.Symbol, row["price_usd"])
	case "dex":
		return fmt.Sprintf("Latest DEX volume for %v was $%v.", row["pair"], row["volume_usd"])
	default:
		return canned(len(rows))
	}
}
