package handlers

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	binderr "github.com/fairtrace/fairtrace/pkg/api/binding/errors"
	"github.com/fairtrace/fairtrace/pkg/api/types/public"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/ledger"
	"github.com/fairtrace/fairtrace/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// notarization status of transactions not subject to notarization.
const notNotarized = "none"

// PublicBatchHandler tells consumers where a batch comes from.
//
// Farmers appear only as counts and countries.
// When baseURL is given, the response carries the URL of the batch under it.
func PublicBatchHandler(dbase fdb.Database, baseURL string, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		batchId := c.Param(param)
		b, err := PublicBatch(c.Request().Context(), dbase, batchId)
		if err != nil {
			return binderr.FromDB(err)
		}
		if baseURL != "" {
			b.URL = strings.TrimSuffix(baseURL, "/") + "/batches/" + url.PathEscape(batchId) + "/"
		}
		return c.JSON(http.StatusOK, b)
	}
}

// farmer deliveries merged into a stage.
type delivery struct {
	destination string
	product     string
	unit        string
}

// PublicBatch composes the consumer view of the batch.
//
// Stages are upstream transactions, oldest first. Deliveries from farmers to the same node
// of the same product are merged into a stage.
func PublicBatch(ctx context.Context, dbase fdb.Database, batchId string) (public.Batch, error) {
	l, err := dbase.Ledger().Lineage(ctx, batchId, fdb.Upstream, 0)
	if err != nil {
		return public.Batch{}, err
	}
	root, ok := l.Batches[batchId]
	if !ok {
		return public.Batch{}, fdb.ErrMissing
	}
	g := ledger.Trace(l)

	products, err := dbase.Nodes().Products(ctx, "")
	if err != nil {
		return public.Batch{}, err
	}
	productName := map[string]string{}
	for _, p := range products {
		productName[p.Id] = p.Name
	}

	nodeIds := []string{}
	txIds := []string{}
	for _, tx := range g.Transactions {
		txIds = append(txIds, tx.Id)
		for _, id := range []string{tx.SourceNodeId, tx.DestinationNodeId} {
			if id != "" {
				nodeIds = append(nodeIds, id)
			}
		}
	}
	nodes, err := dbase.Nodes().Get(ctx, utils.Uniq(nodeIds))
	if err != nil {
		return public.Batch{}, err
	}
	notarizations, err := dbase.Notary().Get(ctx, txIds)
	if err != nil {
		return public.Batch{}, err
	}
	status := func(txId string) string {
		if n, ok := notarizations[txId]; ok {
			return string(n.Status)
		}
		return notNotarized
	}

	stages := []public.Stage{}
	merged := map[delivery]int{} // -> index of stages
	countries := map[delivery]map[string]struct{}{}
	farmers := map[delivery]map[string]struct{}{}
	for _, tx := range g.Transactions {
		if tx.Status == fdb.TransactionRejected {
			continue
		}
		src, fromFarmer := nodes[tx.SourceNodeId]
		fromFarmer = fromFarmer && src.Type == fdb.Farmer

		if fromFarmer {
			key := delivery{destination: tx.DestinationNodeId, product: tx.ProductId, unit: tx.Unit}
			if nth, ok := merged[key]; ok {
				st := &stages[nth]
				st.Quantity = st.Quantity.Add(tx.Quantity)
				st.Notarization = worse(st.Notarization, status(tx.Id))
				farmers[key][src.Id] = struct{}{}
				countries[key][src.Country] = struct{}{}
				continue
			}
			merged[key] = len(stages)
			farmers[key] = map[string]struct{}{src.Id: {}}
			countries[key] = map[string]struct{}{src.Country: {}}
		}

		companies := []string{}
		for _, id := range utils.Uniq([]string{tx.SourceNodeId, tx.DestinationNodeId}) {
			if n, ok := nodes[id]; ok && n.Type != fdb.Farmer {
				companies = append(companies, n.Name)
			}
		}
		stages = append(stages, public.Stage{
			TransactionNumber: tx.Number,
			Date:              tx.Date.Format(time.DateOnly),
			Kind:              string(tx.Kind),
			Type:              tx.Type,
			Product:           productName[tx.ProductId],
			Quantity:          stageQuantity(tx),
			Unit:              tx.Unit,
			Companies:         companies,
			Notarization:      status(tx.Id),
		})
	}
	for key, nth := range merged {
		cs := utils.KeysOf(countries[key])
		sort.Strings(cs)
		stages[nth].Farmers = &public.Farmers{Count: len(farmers[key]), Countries: cs}
	}

	claims, err := publicClaims(ctx, dbase.Claims(), batchId)
	if err != nil {
		return public.Batch{}, err
	}

	return public.Batch{
		Number:   root.Number,
		Product:  productName[root.ProductId],
		Quantity: root.InitialQuantity,
		Unit:     root.Unit,
		Stages:   stages,
		Claims:   claims,
	}, nil
}

// quantity put through the transaction.
//
// Internal transactions carry no quantity by themselves; sum of sources is used.
func stageQuantity(tx fdb.Transaction) decimal.Decimal {
	if tx.Kind == fdb.External || len(tx.SourceBatches) == 0 {
		return tx.Quantity
	}
	sum := decimal.Zero
	for _, sb := range tx.SourceBatches {
		sum = sum.Add(sb.Quantity)
	}
	return sum
}

// order of notarization status, from the best.
var notarizationRank = map[string]int{
	string(fdb.NotarizationNotarized): 0,
	string(fdb.NotarizationPending):   1,
	notNotarized:                      2,
	string(fdb.NotarizationFailed):    3,
}

func worse(a, b string) string {
	if notarizationRank[b] > notarizationRank[a] {
		return b
	}
	return a
}

// approved claims on the batch, by name.
func publicClaims(ctx context.Context, dbclaims fdb.ClaimInterface, batchId string) ([]public.Claim, error) {
	attached, err := dbclaims.FindAttached(ctx, fdb.Target{Kind: fdb.BatchScope, Id: batchId})
	if err != nil {
		return nil, err
	}
	approved := utils.Filter(attached, func(a fdb.AttachedClaim) bool {
		return a.Status == fdb.ClaimApproved
	})
	if len(approved) == 0 {
		return []public.Claim{}, nil
	}

	defs, err := dbclaims.Get(ctx, utils.Uniq(utils.Map(approved, func(a fdb.AttachedClaim) string {
		return a.ClaimId
	})))
	if err != nil {
		return nil, err
	}

	out := []public.Claim{}
	for _, a := range approved {
		def, ok := defs[a.ClaimId]
		if !ok {
			continue
		}
		out = append(out, public.Claim{
			Name:        def.Name,
			Description: def.Description,
			Inherited:   a.InheritedFrom != "",
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
