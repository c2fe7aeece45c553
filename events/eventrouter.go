package events

import (
	"github.com/mezonai/powledger/block"
	"github.com/mezonai/powledger/transaction"
)

// EventRouter turns ledger state changes into bus events.
type EventRouter struct {
	eventBus *EventBus
}

func NewEventRouter(eventBus *EventBus) *EventRouter {
	return &EventRouter{eventBus: eventBus}
}

func (er *EventRouter) Bus() *EventBus {
	return er.eventBus
}

func (er *EventRouter) PublishTransactionAdded(tx *transaction.Transaction) {
	er.eventBus.Publish(NewTransactionAddedToPool(tx))
}

// PublishBlockMined publishes the block event followed by one inclusion event
// per transaction, in block order. Nothing is built when no one listens.
func (er *EventRouter) PublishBlockMined(b *block.Block) {
	if er.eventBus.GetTotalSubscriptions() == 0 {
		return
	}
	er.eventBus.Publish(NewBlockMined(b.Index, b.Hash, b.Nonce, len(b.Transactions)))
	for _, tx := range b.Transactions {
		er.eventBus.Publish(NewTransactionIncludedInBlock(tx.ID, b.Index, b.Hash))
	}
}

func (er *EventRouter) PublishChainInvalid(reason string) {
	er.eventBus.Publish(NewChainInvalid(reason))
}
