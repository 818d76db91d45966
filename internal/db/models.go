package db

import "github.com/fblasco1/portfolio-fotografo/internal/models"

type Order = models.Order
type OrderItem = models.OrderItem
type OrderStatus = models.OrderStatus
type Payer = models.Payer

const (
	StatusPending   = models.StatusPending
	StatusApproved  = models.StatusApproved
	StatusRejected  = models.StatusRejected
	StatusInProcess = models.StatusInProcess
	StatusCancelled = models.StatusCancelled
	StatusRefunded  = models.StatusRefunded
)
