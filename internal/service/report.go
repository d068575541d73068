package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"debtster-collector/internal/clients"
	"debtster-collector/internal/domain"
	"debtster-collector/internal/repository"
)

// ReportStore is the report status cache. Satisfied by the redis client.
type ReportStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SAdd(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

type ReportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Created  time.Time `json:"created_at"`
}

const (
	reportSetKey = "report_ids"
	reportTTL    = 72 * time.Hour
	reportURLTTL = 48 * time.Hour
)

// ReportService builds the portfolio XLSX in the background and tracks
// progress in redis.
type ReportService struct {
	debts  DebtRepository
	store  ReportStore
	s3     *clients.S3Client
	events *clients.EventNotifier
	log    *zap.SugaredLogger
}

func NewReportService(
	debts DebtRepository,
	store ReportStore,
	s3 *clients.S3Client,
	events *clients.EventNotifier,
	log *zap.SugaredLogger,
) *ReportService {
	return &ReportService{
		debts:  debts,
		store:  store,
		s3:     s3,
		events: events,
		log:    log,
	}
}

type reportColumn struct {
	Header string
	Value  func(d repository.DebtWithDebtor) any
}

func fmtTimePtr(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.Format("2006-01-02 15:04:05")
}

var reportColumns = []reportColumn{
	{"Invoice", func(d repository.DebtWithDebtor) any { return d.InvoiceNumber }},
	{"Debtor", func(d repository.DebtWithDebtor) any { return d.DebtorName }},
	{"Phone", func(d repository.DebtWithDebtor) any { return d.DebtorPhone }},
	{"Status", func(d repository.DebtWithDebtor) any { return string(d.Status) }},
	{"Priority", func(d repository.DebtWithDebtor) any { return string(d.Priority) }},
	{"Currency", func(d repository.DebtWithDebtor) any { return d.Currency }},
	{"Amount", func(d repository.DebtWithDebtor) any { return d.Amount }},
	{"Paid", func(d repository.DebtWithDebtor) any { return d.TotalPaid() }},
	{"Remaining", func(d repository.DebtWithDebtor) any { return d.RemainingBalance() }},
	{"Paid %", func(d repository.DebtWithDebtor) any { return math.Round(d.PaymentPercentage()) }},
	{"Due date", func(d repository.DebtWithDebtor) any { return d.DueDate.Format("2006-01-02") }},
	{"Days overdue", func(d repository.DebtWithDebtor) any { return d.DaysOverdue(time.Now()) }},
	{"Reminders", func(d repository.DebtWithDebtor) any { return d.ReminderCount }},
	{"Last reminder", func(d repository.DebtWithDebtor) any { return fmtTimePtr(d.LastReminderDate) }},
	{"Next reminder", func(d repository.DebtWithDebtor) any { return fmtTimePtr(d.NextReminderDate) }},
	{"Escalated at", func(d repository.DebtWithDebtor) any { return fmtTimePtr(d.EscalationDate) }},
	{"Tags", func(d repository.DebtWithDebtor) any { return strings.Join(d.Tags, ", ") }},
}

func (s *ReportService) saveStatus(ctx context.Context, st *ReportStatus) error {
	if s == nil || s.store == nil {
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, st.Key, string(data), reportTTL); err != nil {
		return err
	}
	return s.store.SAdd(ctx, reportSetKey, st.Key)
}

// StartPortfolioReport registers the report and generates it in the
// background. The returned key is what clients poll.
func (s *ReportService) StartPortfolioReport(ctx context.Context) (string, error) {
	if s == nil || s.store == nil {
		return "", errors.New("report store not configured")
	}
	if s.s3 == nil {
		return "", errors.New("report storage not configured")
	}

	reportID := fmt.Sprintf("reports:%s", uuid.NewString())
	status := &ReportStatus{
		Key:     reportID,
		Type:    "portfolio",
		Created: time.Now(),
	}
	if err := s.saveStatus(ctx, status); err != nil {
		return "", err
	}

	go s.runPortfolioReport(context.Background(), status)

	return reportID, nil
}

func (s *ReportService) runPortfolioReport(ctx context.Context, status *ReportStatus) {
	debts, err := s.debts.ListActive(ctx)
	if err != nil {
		s.log.Errorw("portfolio report: list debts", "report", status.Key, "error", err)
		return
	}
	counts, err := s.debts.CountByStatus(ctx)
	if err != nil {
		s.log.Errorw("portfolio report: count by status", "report", status.Key, "error", err)
		return
	}

	f := excelize.NewFile()
	sheet := "Portfolio"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for i, col := range reportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	rowIdx := 2
	for i, d := range debts {
		for colIdx, col := range reportColumns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			_ = f.SetCellValue(sheet, cell, col.Value(d))
		}
		rowIdx++

		if (i+1)%500 == 0 {
			// progress caps at 95 until the file URL exists
			progress := math.Round(float64(i+1) / float64(len(debts)) * 100)
			if progress >= 100 {
				progress = 95
			}
			status.Progress = progress
			_ = s.saveStatus(ctx, status)
		}
	}

	s.writeSummarySheet(f, counts, debts)

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.log.Errorw("portfolio report: write buffer", "report", status.Key, "error", err)
		return
	}

	status.Progress = 95
	_ = s.saveStatus(ctx, status)

	fileName := fmt.Sprintf("portfolio_%s.xlsx", time.Now().Format("20060102_150405"))
	key, err := s.s3.UploadXLSX(ctx, fileName, buf.Bytes())
	if err != nil {
		s.log.Errorw("portfolio report: upload", "report", status.Key, "error", err)
		return
	}

	url, err := s.s3.GetTemporaryURL(ctx, key, reportURLTTL)
	if err != nil {
		s.log.Errorw("portfolio report: presign", "report", status.Key, "error", err)
		return
	}

	status.FileURL = &url
	status.Progress = 100
	_ = s.saveStatus(ctx, status)

	s.events.NotifyReportReady(ctx, status.Key, url, fileName)
	s.log.Infow("portfolio report ready", "report", status.Key, "debts", len(debts))
}

func (s *ReportService) writeSummarySheet(f *excelize.File, counts map[domain.DebtStatus]int, debts []repository.DebtWithDebtor) {
	sheet := "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return
	}

	_ = f.SetCellValue(sheet, "A1", "Status")
	_ = f.SetCellValue(sheet, "B1", "Count")

	statuses := make([]string, 0, len(counts))
	for st := range counts {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)

	row := 2
	for _, st := range statuses {
		cellA, _ := excelize.CoordinatesToCellName(1, row)
		cellB, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheet, cellA, st)
		_ = f.SetCellValue(sheet, cellB, counts[domain.DebtStatus(st)])
		row++
	}

	var outstanding float64
	for i := range debts {
		if debts[i].Status.Open() {
			outstanding += debts[i].RemainingBalance()
		}
	}
	row++
	cellA, _ := excelize.CoordinatesToCellName(1, row)
	cellB, _ := excelize.CoordinatesToCellName(2, row)
	_ = f.SetCellValue(sheet, cellA, "Total outstanding")
	_ = f.SetCellValue(sheet, cellB, outstanding)
}

// GetReports returns every known report status, newest first.
func (s *ReportService) GetReports(ctx context.Context) ([]ReportStatus, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("report store not configured")
	}

	keys, err := s.store.SMembers(ctx, reportSetKey)
	if err != nil {
		return nil, fmt.Errorf("list report keys: %w", err)
	}

	var statuses []ReportStatus
	for _, key := range keys {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var st ReportStatus
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			continue
		}
		statuses = append(statuses, st)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})
	return statuses, nil
}

// GetReport returns one report status by key.
func (s *ReportService) GetReport(ctx context.Context, reportID string) (*ReportStatus, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("report store not configured")
	}

	data, err := s.store.Get(ctx, reportID)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var st ReportStatus
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("parse report status: %w", err)
	}
	return &st, nil
}
