package monday

// GraphQL query documents. Column identifiers are supplied as variables so
// the board's column mapping stays in configuration.

const queryStatusColumn = `
query GetStatusColumn($boardId: [ID!], $columnId: [String!]) {
  boards(ids: $boardId) {
    columns(ids: $columnId) { id title type settings_str }
  }
}
`

const queryFilteredItemsPage = `
query GetFilteredItemsPage($boardId: [ID!], $limit: Int!, $columnIds: [String!], $dateColumn: ID!, $dateRange: CompareValue!, $statusColumn: ID!, $statusIndex: CompareValue!) {
  boards(ids: $boardId) {
    items_page(
      limit: $limit
      query_params: {rules: [
        {column_id: $dateColumn, compare_value: $dateRange, operator: between},
        {column_id: $statusColumn, compare_value: $statusIndex, operator: any_of}
      ]}
    ) {
      cursor
      items {
        id
        name
        assets { id name file_extension public_url url file_size }
        column_values(ids: $columnIds) {
          id
          text
          ... on StatusValue { index label }
        }
      }
    }
  }
}
`

const queryItemsPage = `
query GetItemsPage($boardId: [ID!], $limit: Int!, $columnIds: [String!]) {
  boards(ids: $boardId) {
    items_page(limit: $limit) {
      cursor
      items {
        id
        name
        assets { id name file_extension public_url url file_size }
        column_values(ids: $columnIds) {
          id
          text
          ... on StatusValue { index label }
        }
      }
    }
  }
}
`

const queryNextItemsPage = `
query NextItems($cursor: String!, $limit: Int!, $columnIds: [String!]) {
  next_items_page(cursor: $cursor, limit: $limit) {
    cursor
    items {
      id
      name
      assets { id name file_extension public_url url file_size }
      column_values(ids: $columnIds) {
        id
        text
        ... on StatusValue { index label }
      }
    }
  }
}
`
