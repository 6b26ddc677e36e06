package models

import "github.com/shopspring/decimal"

type GeneralStats struct {
	TotalUsers       int             `json:"total_users"`
	TotalGames       int             `json:"total_games"`
	TotalWins        int             `json:"total_wins"`
	GamesRevenue     decimal.Decimal `json:"games_revenue"`
	GamesPayouts     decimal.Decimal `json:"games_payouts"`
	HouseEdge        decimal.Decimal `json:"house_edge"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	ActiveCategories int             `json:"active_categories"`
}
