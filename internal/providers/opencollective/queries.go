package opencollective

import (
	"fmt"
	"time"
)

const accountFields = `
            name
            id
            slug
            type
            socialLinks {
              url
              type
            }
            isIncognito
            imageUrl(height: 460, format: png)`

func ordersQuery(selector string, offset int, activeOnly bool) string {
	filter := "onlySubscriptions: true"
	if activeOnly {
		filter = "onlyActiveSubscriptions: true"
	}
	return fmt.Sprintf(`{
  account(%s) {
    orders(limit: 1000, offset: %d, %s, filter: INCOMING) {
      totalCount
      nodes {
        id
        createdAt
        frequency
        status
        tier {
          name
        }
        amount {
          value
        }
        fromAccount {%s
        }
      }
    }
  }
}`, selector, offset, filter, accountFields)
}

func transactionsQuery(selector string, offset int, dateFrom *time.Time) string {
	from := ""
	if dateFrom != nil {
		from = fmt.Sprintf(", dateFrom: %q", dateFrom.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf(`{
  account(%s) {
    transactions(limit: 1000, offset: %d, type: CREDIT%s) {
      totalCount
      nodes {
        id
        createdAt
        order {
          id
          status
          frequency
          tier {
            name
          }
          amount {
            value
          }
        }
        amount {
          value
        }
        fromAccount {%s
        }
      }
    }
  }
}`, selector, offset, from, accountFields)
}

func individualQuery(selector string, offset int) string {
	return fmt.Sprintf(`{
  account(%s, throwIfMissing: true) {
    transactions(limit: 100, offset: %d, type: DEBIT) {
      totalCount
      nodes {
        createdAt
        amount {
          value
        }
        oppositeAccount {%s
        }
      }
    }
  }
}`, selector, offset, accountFields)
}
