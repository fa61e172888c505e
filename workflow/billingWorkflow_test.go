package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

// A 1062 on the (order_kind, order_id) index means another creator won the
// race and the existing bill should be refetched; a 1062 on the bill number
// means a sequence collision and only the number needs redrawing.
func TestDuplicateKeyOnIndex(t *testing.T) {
	orderDup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Direct-7' for key 'bills.idx_bill_order'"}
	numberDup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'BILL-42' for key 'bills.idx_bills_bill_number'"}

	if !duplicateKeyOnIndex(orderDup, "idx_bill_order") {
		t.Fatal("order-index duplicate not recognized")
	}
	if duplicateKeyOnIndex(numberDup, "idx_bill_order") {
		t.Fatal("bill-number duplicate misread as the order race")
	}
	if !duplicateKeyOnIndex(fmt.Errorf("create bill: %w", orderDup), "idx_bill_order") {
		t.Fatal("wrapped duplicate not recognized")
	}
	if duplicateKeyOnIndex(errors.New("connection reset"), "idx_bill_order") {
		t.Fatal("plain error misread as a duplicate")
	}

	if !isDuplicateKeyError(numberDup) {
		t.Fatal("1062 not recognized as duplicate key")
	}
	if isDuplicateKeyError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}) {
		t.Fatal("non-1062 misread as duplicate key")
	}
}
