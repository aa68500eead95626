package payload_test

import (
	"strings"
	"testing"

	"github.com/pipewise/target-intacct/internal/intacct/payload"
)

func TestMarshalElementPreservesOrder(t *testing.T) {
	obj := payload.New().
		Set("bankaccountid", "BA-1").
		Set("vendorid", "V-1").
		Set("memo", "payout").
		Set("checkdate", payload.New().Set("year", 2024).Set("month", 3).Set("day", 5))

	b, err := payload.MarshalElement("create_paymentrequest", obj)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "<create_paymentrequest>" +
		"<bankaccountid>BA-1</bankaccountid>" +
		"<vendorid>V-1</vendorid>" +
		"<memo>payout</memo>" +
		"<checkdate><year>2024</year><month>3</month><day>5</day></checkdate>" +
		"</create_paymentrequest>"
	if string(b) != want {
		t.Fatalf("unexpected xml:\n got %s\nwant %s", b, want)
	}
}

func TestMarshalElementList(t *testing.T) {
	obj := payload.New().Set("receiptitems", payload.List{
		Name: "lineitem",
		Items: []*payload.Object{
			payload.New().Set("glaccountno", "4000").Set("amount", "200.00"),
			payload.New().Set("glaccountno", "6000").Set("amount", "-50.00"),
		},
	})
	b, err := payload.MarshalElement("record_otherreceipt", obj)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(b)
	if !strings.Contains(got, "<receiptitems><lineitem><glaccountno>4000</glaccountno><amount>200.00</amount></lineitem><lineitem>") {
		t.Fatalf("unexpected xml: %s", got)
	}
}

func TestSetReplacesInPlace(t *testing.T) {
	obj := payload.New().Set("a", "1").Set("b", "2").Set("a", "3")
	if obj.Len() != 2 {
		t.Fatalf("len=%d want=2", obj.Len())
	}
	if obj.GetString("a") != "3" {
		t.Fatalf("a=%q want=3", obj.GetString("a"))
	}
	if obj.Fields()[0].Name != "a" || obj.Fields()[1].Name != "b" {
		t.Fatalf("order changed: %#v", obj.Fields())
	}
}
