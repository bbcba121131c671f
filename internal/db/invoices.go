package db

import (
	"context"
	"fmt"
)

func (s *SubscriptionStore) RecordInvoice(ctx context.Context, inv *Invoice) error {
	if inv.Status == "" {
		inv.Status = InvoicePending
	}
	if err := s.db.WithContext(ctx).Create(inv).Error; err != nil {
		s.metrics.StoreError("record_invoice")
		return &StoreError{Op: "record_invoice", UserID: inv.UserID, Err: err}
	}
	return nil
}

func (s *SubscriptionStore) SetInvoiceStatus(ctx context.Context, invoiceID, status string) error {
	res := s.db.WithContext(ctx).Model(&Invoice{}).
		Where("invoice_id = ?", invoiceID).
		Update("status", status)
	if res.Error != nil {
		s.metrics.StoreError("invoice_status")
		return &StoreError{Op: "invoice_status", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &StoreError{Op: "invoice_status", Err: fmt.Errorf("invoice %s not found", invoiceID)}
	}
	return nil
}

func (s *SubscriptionStore) InvoicesByStatus(ctx context.Context, status string, limit int) ([]Invoice, error) {
	var invoices []Invoice
	q := s.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&invoices).Error; err != nil {
		s.metrics.StoreError("list_invoices")
		return nil, &StoreError{Op: "list_invoices", Err: err}
	}
	return invoices, nil
}

func (s *SubscriptionStore) GetInvoice(ctx context.Context, invoiceID string) (Invoice, error) {
	var inv Invoice
	if err := s.db.WithContext(ctx).First(&inv, "invoice_id = ?", invoiceID).Error; err != nil {
		return Invoice{}, &StoreError{Op: "get_invoice", Err: err}
	}
	return inv, nil
}

// OrphanPending переводит все ожидающие счета в orphaned. Сессии живут
// только в памяти, поэтому после рестарта эти счета больше никто не проверит.
func (s *SubscriptionStore) OrphanPending(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Invoice{}).
		Where("status = ?", InvoicePending).
		Update("status", InvoiceOrphaned)
	if res.Error != nil {
		s.metrics.StoreError("orphan_pending")
		return 0, &StoreError{Op: "orphan_pending", Err: res.Error}
	}
	return res.RowsAffected, nil
}
