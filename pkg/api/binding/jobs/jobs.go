package jobs

import (
	apijobs "github.com/fairtrace/fairtrace/pkg/api/types/jobs"
	"github.com/fairtrace/fairtrace/pkg/bulkupload"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/utils"
)

// ComposeValidation makes the result of an upload check.
//
// rows is the number of data rows read from the sheet.
func ComposeValidation(kind fdb.UploadKind, rows int, errs []bulkupload.RowError) apijobs.Validation {
	if errs == nil {
		errs = []bulkupload.RowError{}
	}
	return apijobs.Validation{
		Kind: string(kind),
		Rows: rows,
		Errors: utils.Map(errs, func(e bulkupload.RowError) apijobs.RowError {
			return apijobs.RowError{Row: e.Row, Column: e.Column, Message: e.Message}
		}),
	}
}

func ComposeUpload(u fdb.Upload) apijobs.Upload {
	farmers := u.FarmerIds
	if farmers == nil {
		farmers = []string{}
	}
	txs := u.TransactionIds
	if txs == nil {
		txs = []string{}
	}
	return apijobs.Upload{
		Id:             u.Id,
		NodeId:         u.NodeId,
		SupplyChainId:  u.SupplyChainId,
		Kind:           string(u.Kind),
		Filename:       u.Filename,
		Status:         string(u.Status),
		RowCount:       u.RowCount,
		FarmerIds:      farmers,
		TransactionIds: txs,
		CreatedAt:      u.CreatedAt,
	}
}

// ComposeReport makes the report job in response.
//
// Paths of generated files are not exposed.
func ComposeReport(r fdb.ReportJob) apijobs.Report {
	return apijobs.Report{
		Id:        r.Id,
		NodeId:    r.NodeId,
		Kind:      string(r.Kind),
		Since:     r.Since,
		Until:     r.Until,
		Status:    string(r.Status),
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func ParseReportSpec(nodeId string, spec apijobs.ReportSpec) (fdb.ReportParam, error) {
	kind, err := fdb.AsReportKind(spec.Kind)
	if err != nil {
		return fdb.ReportParam{}, err
	}
	return fdb.ReportParam{NodeId: nodeId, Kind: kind, Since: spec.Since, Until: spec.Until}.Validate()
}
