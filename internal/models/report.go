package models

import "time"

// Settings is the shop-wide configuration editable by admins
type Settings struct {
	StaffReferralCode string    `json:"staffReferralCode"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
}

// MonthlyEarning is one bar of the earnings chart
type MonthlyEarning struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
}

// Summary is the financial dashboard projection
type Summary struct {
	TodayCollection float64          `json:"todayCollection"`
	MonthCollection float64          `json:"monthCollection"`
	TotalCollection float64          `json:"totalCollection"`
	PendingAmount   float64          `json:"pendingAmount"`
	TodayProfit     float64          `json:"todayProfit"`
	MonthProfit     float64          `json:"monthProfit"`
	MonthlyEarnings []MonthlyEarning `json:"monthlyEarnings"`
}

// NameCount is a ranked label used by the analysis page
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Analysis is the service analysis projection over a date range
type Analysis struct {
	StartDate      string      `json:"startDate,omitempty"`
	EndDate        string      `json:"endDate,omitempty"`
	TotalRepairs   int         `json:"totalRepairs"`
	PaidRepairs    int         `json:"paidRepairs"`
	PendingRepairs int         `json:"pendingRepairs"`
	TotalRevenue   float64     `json:"totalRevenue"`
	PartsRevenue   float64     `json:"partsRevenue"`
	ServiceRevenue float64     `json:"serviceRevenue"`
	PendingAmount  float64     `json:"pendingAmount"`
	TopModels      []NameCount `json:"topModels"`
	TopParts       []NameCount `json:"topParts"`
}
