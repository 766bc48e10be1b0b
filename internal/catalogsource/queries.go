package catalogsource

// analytics_master is the enriched catalog table produced by the ingestion
// pipeline. The snapshot loader reads it wholesale each refresh cycle.
const querySelectCatalog = `
SELECT id, brand, product_type, source_platform, price_effective, quantity_sold, rating, discount
FROM analytics_master`
