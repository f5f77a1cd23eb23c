package persistence

import "ticketing/internal/service/ticketing/domain"

func toDomainEvent(m *EventModel) *domain.Event {
	if m == nil {
		return nil
	}
	return &domain.Event{
		ID:          m.ID,
		ManagerID:   m.ManagerID,
		Name:        m.Name,
		Type:        m.Type,
		Location:    m.Location,
		Description: m.Description,
		Organizer: domain.Organizer{
			Name:    m.OrganizerName,
			Email:   m.OrganizerEmail,
			Phone:   m.OrganizerPhone,
			Website: m.OrganizerWebsite,
		},
		Tags:           m.Tags,
		Regulations:    m.Regulations,
		MediaLinks:     m.MediaLinks,
		AvailableSeats: m.AvailableSeats,
		MaxPurchase:    m.MaxPurchase,
		StartDate:      m.StartDate.UTC(),
		EndDate:        m.EndDate.UTC(),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

func fromDomainEvent(e *domain.Event) *EventModel {
	return &EventModel{
		ID:               e.ID,
		ManagerID:        e.ManagerID,
		Name:             e.Name,
		Type:             e.Type,
		Location:         e.Location,
		Description:      e.Description,
		OrganizerName:    e.Organizer.Name,
		OrganizerEmail:   e.Organizer.Email,
		OrganizerPhone:   e.Organizer.Phone,
		OrganizerWebsite: e.Organizer.Website,
		Tags:             e.Tags,
		Regulations:      e.Regulations,
		MediaLinks:       e.MediaLinks,
		AvailableSeats:   e.AvailableSeats,
		MaxPurchase:      e.MaxPurchase,
		StartDate:        e.StartDate,
		EndDate:          e.EndDate,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toDomainTier(m *PricingTierModel) *domain.PricingTier {
	if m == nil {
		return nil
	}
	return &domain.PricingTier{
		ID:          m.ID,
		EventID:     m.EventID,
		Name:        m.Name,
		Price:       m.Price,
		Currency:    m.Currency,
		Description: m.Description,
		Count:       m.SeatCount,
		Condition:   m.Condition,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func fromDomainTier(t *domain.PricingTier) *PricingTierModel {
	return &PricingTierModel{
		ID:          t.ID,
		EventID:     t.EventID,
		Name:        t.Name,
		Price:       t.Price,
		Currency:    t.Currency,
		Description: t.Description,
		SeatCount:   t.Count,
		Condition:   t.Condition,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toDomainCoupon(m *CouponModel) *domain.Coupon {
	if m == nil {
		return nil
	}
	return &domain.Coupon{
		ID:         m.ID,
		EventID:    m.EventID,
		TierID:     m.TierID,
		Code:       m.Code,
		Discount:   m.Discount,
		Type:       domain.CouponType(m.Type),
		UsageLimit: m.UsageLimit,
		TimesUsed:  m.TimesUsed,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

func fromDomainCoupon(c *domain.Coupon) *CouponModel {
	return &CouponModel{
		ID:         c.ID,
		EventID:    c.EventID,
		TierID:     c.TierID,
		Code:       c.Code,
		Discount:   c.Discount,
		Type:       string(c.Type),
		UsageLimit: c.UsageLimit,
		TimesUsed:  c.TimesUsed,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func toDomainTicket(m *TicketModel) *domain.Ticket {
	if m == nil {
		return nil
	}
	t := &domain.Ticket{
		ID:            m.ID,
		Identifier:    m.Identifier,
		UserID:        m.UserID,
		EventID:       m.EventID,
		TierID:        m.TierID,
		PricingScheme: m.PricingScheme,
		Amount:        m.Amount,
		Currency:      m.Currency,
		CouponCode:    m.CouponCode,
		ValidUntil:    m.ValidUntil.UTC(),
		Details:       m.Details,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
	if m.CancelUntil != nil {
		cu := m.CancelUntil.UTC()
		t.CancelUntil = &cu
	}
	return t
}

func fromDomainTicket(t *domain.Ticket) *TicketModel {
	return &TicketModel{
		ID:            t.ID,
		Identifier:    t.Identifier,
		UserID:        t.UserID,
		EventID:       t.EventID,
		TierID:        t.TierID,
		PricingScheme: t.PricingScheme,
		Amount:        t.Amount,
		Currency:      t.Currency,
		CouponCode:    t.CouponCode,
		ValidUntil:    t.ValidUntil,
		CancelUntil:   t.CancelUntil,
		Details:       t.Details,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
