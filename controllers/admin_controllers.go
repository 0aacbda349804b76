package controllers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	"github.com/wcharczuk/go-chart/v2"
	"gorm.io/gorm"

	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/utils"
)

type AdminController struct {
	DB *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db}
}

// GetDashboardStats -> counters for the back-office dashboard, scoped to the
// caller's restaurant.
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")
	today := time.Now().Format("2006-01-02")

	var stats struct {
		TotalOrders  int64   `json:"total_orders"`
		TodayOrders  int64   `json:"today_orders"`
		TotalRevenue float64 `json:"total_revenue"`
		TodayRevenue float64 `json:"today_revenue"`
		OrderStats   struct {
			Pending          int64 `json:"pending"`
			PaymentConfirmed int64 `json:"payment_confirmed"`
			InPreparation    int64 `json:"in_preparation"`
			Finished         int64 `json:"finished"`
			PaymentFailed    int64 `json:"payment_failed"`
		} `json:"order_stats"`
	}

	base := ac.DB.Model(&models.Order{}).Where("restaurant_id = ?", restaurantID)

	base.Session(&gorm.Session{}).Count(&stats.TotalOrders)
	base.Session(&gorm.Session{}).Where("DATE(created_at) = ?", today).Count(&stats.TodayOrders)

	statusCounts := map[string]*int64{
		models.OrderStatusPending:          &stats.OrderStats.Pending,
		models.OrderStatusPaymentConfirmed: &stats.OrderStats.PaymentConfirmed,
		models.OrderStatusInPreparation:    &stats.OrderStats.InPreparation,
		models.OrderStatusFinished:         &stats.OrderStats.Finished,
		models.OrderStatusPaymentFailed:    &stats.OrderStats.PaymentFailed,
	}
	for status, dest := range statusCounts {
		base.Session(&gorm.Session{}).Where("status = ?", status).Count(dest)
	}

	// Revenue counts paid orders only; a PENDING total is not money yet.
	paidStatuses := []string{models.OrderStatusPaymentConfirmed, models.OrderStatusInPreparation, models.OrderStatusFinished}
	base.Session(&gorm.Session{}).Where("status IN ?", paidStatuses).
		Select("COALESCE(SUM(total), 0)").Row().Scan(&stats.TotalRevenue)
	base.Session(&gorm.Session{}).Where("status IN ? AND DATE(created_at) = ?", paidStatuses, today).
		Select("COALESCE(SUM(total), 0)").Row().Scan(&stats.TodayRevenue)

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

// salesRow is one line of the sales report.
type salesRow struct {
	Day     string  `json:"day"`
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

func (ac *AdminController) salesRows(restaurantID uint, days int) ([]salesRow, error) {
	since := time.Now().AddDate(0, 0, -days)
	paidStatuses := []string{models.OrderStatusPaymentConfirmed, models.OrderStatusInPreparation, models.OrderStatusFinished}

	var rows []salesRow
	err := ac.DB.Model(&models.Order{}).
		Select("DATE(created_at) as day, COUNT(*) as orders, COALESCE(SUM(total), 0) as revenue").
		Where("restaurant_id = ? AND status IN ? AND created_at >= ?", restaurantID, paidStatuses, since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error
	return rows, err
}

func reportDays(c *gin.Context) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 || days > 365 {
		days = 30
	}
	return days
}

// GetSalesReport -> daily paid-order totals as JSON.
func (ac *AdminController) GetSalesReport(c *gin.Context) {
	days := reportDays(c)
	rows, err := ac.salesRows(c.GetUint("restaurant_id"), days)
	if err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	var total float64
	for _, row := range rows {
		total += row.Revenue
	}

	utils.RespondJSON(c, http.StatusOK, "Sales report", gin.H{
		"days":          days,
		"rows":          rows,
		"total_revenue": total,
	})
}

// ExportSalesCSV -> the same report as a CSV download.
func (ac *AdminController) ExportSalesCSV(c *gin.Context) {
	rows, err := ac.salesRows(c.GetUint("restaurant_id"), reportDays(c))
	if err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"day", "orders", "revenue"})
	for _, row := range rows {
		w.Write([]string{row.Day, strconv.FormatInt(row.Orders, 10), fmt.Sprintf("%.2f", row.Revenue)})
	}
	w.Flush()

	c.Header("Content-Disposition", "attachment; filename=sales-report.csv")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// ExportSalesPDF -> the report as a PDF with a revenue bar chart.
func (ac *AdminController) ExportSalesPDF(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")
	days := reportDays(c)

	var restaurant models.Restaurant
	if err := ac.DB.First(&restaurant, restaurantID).Error; err != nil {
		utils.RespondAppError(c, utils.NewNotFoundError("restaurant not found"))
		return
	}

	rows, err := ac.salesRows(restaurantID, days)
	if err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Sales Report - %s", restaurant.Name))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Last %d days, generated %s", days, time.Now().Format("2006-01-02 15:04")))
	pdf.Ln(12)

	var total float64
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(50, 7, "Day", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 7, "Orders", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, "Revenue", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		total += row.Revenue
		pdf.CellFormat(50, 7, row.Day, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, strconv.FormatInt(row.Orders, 10), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, utils.FormatCurrency(row.Revenue), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 7, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 7, utils.FormatCurrency(total), "1", 1, "R", false, 0, "")
	pdf.Ln(10)

	if chartPNG, err := renderRevenueChart(rows); err == nil {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("revenue-chart", opts, bytes.NewReader(chartPNG))
		pdf.ImageOptions("revenue-chart", 10, pdf.GetY(), 180, 0, false, opts, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		utils.RespondAppError(c, utils.NewInternalError(err))
		return
	}

	c.Header("Content-Disposition", "attachment; filename=sales-report.pdf")
	c.Data(http.StatusOK, "application/pdf", out.Bytes())
}

func renderRevenueChart(rows []salesRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data to chart")
	}

	bars := make([]chart.Value, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, chart.Value{
			Label: row.Day,
			Value: row.Revenue,
		})
	}

	graph := chart.BarChart{
		Title:    "Revenue per day",
		Height:   300,
		BarWidth: 20,
		Bars:     bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
