package availability

import "github.com/teamslot/backend/internal/models"

// MaxBestSlots caps the number of suggestions. Ties past the cap are dropped in traversal order.
const MaxBestSlots = 5

// BestSlots returns up to MaxBestSlots cells whose count equals the week's maximum, in
// day-then-slot order. It is empty when nobody overlaps anywhere.
func BestSlots(a *Aggregation) []models.BestSlot {
	if a.Max == 0 {
		return []models.BestSlot{}
	}
	out := make([]models.BestSlot, 0, MaxBestSlots)
	for _, c := range a.Cells() {
		if c.Count != a.Max {
			continue
		}
		out = append(out, models.BestSlot{
			Day:              c.Day,
			Slot:             c.Slot.On(c.Day),
			Key:              c.Key,
			AvailableMembers: append([]models.User(nil), c.Members...),
			Count:            c.Count,
		})
		if len(out) == MaxBestSlots {
			break
		}
	}
	return out
}
