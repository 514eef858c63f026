package handler

import (
	"github.com/go-chi/chi/v5"
)

// Register mounts every API route under /api.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/courses", h.listCourses)
		r.Get("/courses/{courseId}", h.getCourse)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Post("/orders", h.createOrder)
			r.Get("/orders", h.listOrders)
			r.Get("/orders/{orderId}", h.getOrder)

			r.Post("/payments", h.createPayment)
			r.Get("/payments/orders/{orderId}", h.listPayments)

			r.Post("/discounts/calculate", h.calculateDiscount)
			r.Get("/discounts/{code}", h.findDiscount)

			r.Route("/admin/discounts", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", h.listDiscounts)
				r.Post("/", h.createDiscount)
				r.Get("/{id}", h.getDiscount)
				r.Put("/{id}", h.updateDiscount)
				r.Delete("/{id}", h.trashDiscount)
				r.Post("/{id}/restore", h.restoreDiscount)
				r.Delete("/{id}/force", h.forceDeleteDiscount)
			})
		})
	})
}
