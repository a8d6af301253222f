package services

import (
	"fmt"

	"github.com/chachabrian/railparcel-backend/internal/models"
)

// StatusChangeContent is the text every status-change message carries.
func StatusChangeContent(status models.ParcelStatus) string {
	return fmt.Sprintf("Parcel status updated to: %s", status)
}

// CreationContent renders the creation notice for one recipient. Only the
// sender's own station sees the human sender name.
func CreationContent(parcel models.Parcel, sender models.Station, recipientID uint, initial string) string {
	if recipientID == sender.ID {
		return fmt.Sprintf("New parcel %s from %s (sender: %s): %s",
			parcel.TrackingNumber, sender.Name, parcel.SenderName, initial)
	}
	return fmt.Sprintf("New parcel %s from %s: %s", parcel.TrackingNumber, sender.Name, initial)
}

// PlanCreation returns one message per station, in the order given. The
// copied flag follows each recipient's own is_master.
func PlanCreation(parcel models.Parcel, sender models.Station, stations []models.Station, initial string) []models.Message {
	messages := make([]models.Message, 0, len(stations))
	for _, station := range stations {
		messages = append(messages, models.Message{
			FromStationID:  sender.ID,
			ToStationID:    station.ID,
			ParcelID:       parcel.ID,
			Content:        CreationContent(parcel, sender, station.ID, initial),
			IsMasterCopied: station.IsMaster,
		})
	}
	return messages
}

// PlanStatusChange returns at most three messages for the parcel's current
// status. The receiver is always told, unless sender, receiver and actor are
// one station. The sender is told when it is not the actor. The master is
// told when it is none of actor, sender and receiver. A parcel sent to its
// own station by someone else yields two messages to that station, one per
// role. master may be nil.
func PlanStatusChange(parcel models.Parcel, actorStationID uint, master *models.Station) []models.Message {
	content := StatusChangeContent(parcel.Status)

	var messages []models.Message
	add := func(stationID uint) {
		messages = append(messages, models.Message{
			FromStationID:  actorStationID,
			ToStationID:    stationID,
			ParcelID:       parcel.ID,
			Content:        content,
			IsMasterCopied: true,
		})
	}

	selfShipment := parcel.SenderStationID == parcel.ReceiverStationID &&
		parcel.SenderStationID == actorStationID
	if !selfShipment {
		add(parcel.ReceiverStationID)
	}
	if parcel.SenderStationID != actorStationID {
		add(parcel.SenderStationID)
	}
	if master != nil && master.ID != 0 &&
		master.ID != actorStationID &&
		master.ID != parcel.SenderStationID &&
		master.ID != parcel.ReceiverStationID {
		add(master.ID)
	}
	return messages
}

// PlanDirect builds a hand-written note from one station to another.
func PlanDirect(parcel models.Parcel, fromStationID uint, to models.Station, content string) models.Message {
	return models.Message{
		FromStationID:  fromStationID,
		ToStationID:    to.ID,
		ParcelID:       parcel.ID,
		Content:        content,
		IsMasterCopied: to.IsMaster,
	}
}
