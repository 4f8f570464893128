package market

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ssoonwee/bonafide/pkg/encoding/fixedn"
	"github.com/ssoonwee/bonafide/pkg/lifecycle"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/gateway"
)

func dumpEntries(w io.Writer, entries []market.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No assets.")
		return
	}
	buf := bytes.NewBuffer(nil)

	// Ignore the errors below because `Write` to buffer doesn't return error.
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("ID\tStatus\tPrice\tName\tSeller\tOwner\n"))
	for _, e := range entries {
		if e.Record == nil {
			_, _ = tw.Write([]byte(fmt.Sprintf("%s\t-\t-\terror: %s\t\t\n", e.TokenID, e.Err)))
			continue
		}
		r := e.Record
		_, _ = tw.Write([]byte(fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\n",
			r.TokenID, r.Status, r.DisplayPrice, r.Metadata.Name, r.Seller.Hex(), r.Owner.Hex())))
	}
	_ = tw.Flush()
	fmt.Fprint(w, buf.String())
}

func dumpRecord(w io.Writer, r market.AssetRecord) {
	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("ID:\t" + r.TokenID.String() + "\n"))
	_, _ = tw.Write([]byte("Name:\t" + r.Metadata.Name + "\n"))
	if r.Metadata.Description != "" {
		_, _ = tw.Write([]byte("Description:\t" + r.Metadata.Description + "\n"))
	}
	_, _ = tw.Write([]byte("Image:\t" + r.Metadata.Image + "\n"))
	_, _ = tw.Write([]byte("Status:\t" + r.Status.String() + "\n"))
	_, _ = tw.Write([]byte("Price:\t" + r.DisplayPrice + "\n"))
	_, _ = tw.Write([]byte("Seller:\t" + r.Seller.Hex() + "\n"))
	_, _ = tw.Write([]byte("Owner:\t" + r.Owner.Hex() + "\n"))
	_, _ = tw.Write([]byte("URI:\t" + r.MetadataURI + "\n"))
	_ = tw.Flush()
	fmt.Fprint(w, buf.String())
}

// dumpOutcome prints whatever is known about the operation result, nil
// outcome (nothing was confirmed) prints nothing.
func dumpOutcome(w io.Writer, o *lifecycle.Outcome, decimals int) {
	if o == nil || o.Receipt == nil {
		return
	}
	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("Transaction:\t" + o.Receipt.Hash.Hex() + "\n"))
	_, _ = tw.Write([]byte(fmt.Sprintf("Block:\t%d\n", o.Receipt.BlockNumber)))
	if o.TokenID != nil {
		_, _ = tw.Write([]byte("ID:\t" + o.TokenID.String() + "\n"))
	}
	if o.Price != nil {
		_, _ = tw.Write([]byte("Status:\t" + o.Status.String() + "\n"))
		_, _ = tw.Write([]byte("Price:\t" + fixedn.ToString(o.Price, decimals) + "\n"))
		_, _ = tw.Write([]byte("Seller:\t" + o.Seller.Hex() + "\n"))
		_, _ = tw.Write([]byte("Owner:\t" + o.Owner.Hex() + "\n"))
	}
	_ = tw.Flush()
	fmt.Fprint(w, buf.String())
}

func dumpJournal(w io.Writer, entries []gateway.JournalEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("Hash\tMethod\tSender\tState\tBlock\n"))
	for _, e := range entries {
		_, _ = tw.Write([]byte(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\n", e.Hash.Hex(), e.Method, e.Sender.Hex(), e.State, e.Block)))
	}
	_ = tw.Flush()
	fmt.Fprint(w, buf.String())
}
