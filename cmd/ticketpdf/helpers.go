package main

import (
	"ticketpdf/internal/config"
	"ticketpdf/internal/tickets"
)

func ticketsColumns(cfg *config.Config) tickets.Columns {
	return tickets.Columns{
		Status:    cfg.Board.Columns.Status,
		OpenDate:  cfg.Board.Columns.OpenDate,
		CloseDate: cfg.Board.Columns.CloseDate,
	}
}
