package snapshot

const selectFPOs = `
SELECT id, name, district
FROM fpos
WHERE ($1::bigint IS NULL OR id = $1)
ORDER BY id`

const selectFarmers = `
SELECT id, fpo_id, name, mobile_number, village_name
FROM farmers
WHERE ($1::bigint IS NULL OR fpo_id = $1)
  AND ($2::bigint IS NULL OR id = $2)
ORDER BY id`

const selectProducts = `
SELECT id, name, category
FROM products
ORDER BY id`

// $1 fpo, $2 farmer, $3 product, $4 from, $5 to
const selectProcurements = `
SELECT id, procured_on, farmer_id, fpo_id, product_id, quantity, rate, amount
FROM procurements
WHERE ($1::bigint IS NULL OR fpo_id = $1)
  AND ($2::bigint IS NULL OR farmer_id = $2)
  AND ($3::bigint IS NULL OR product_id = $3)
  AND ($4::date IS NULL OR procured_on >= $4)
  AND ($5::date IS NULL OR procured_on <= $5)
ORDER BY id`

// $1 fpo, $2 farmer, $3 from, $4 to
const selectPayments = `
SELECT id, paid_on, farmer_id, fpo_id, amount, description
FROM payments
WHERE ($1::bigint IS NULL OR fpo_id = $1)
  AND ($2::bigint IS NULL OR farmer_id = $2)
  AND ($3::date IS NULL OR paid_on >= $3)
  AND ($4::date IS NULL OR paid_on <= $4)
ORDER BY id`

// $1 fpo, $2 product, $3 from, $4 to
const selectSales = `
SELECT id, sold_on, fpo_id, product_id, quantity, rate, amount, status
FROM sales
WHERE ($1::bigint IS NULL OR fpo_id = $1)
  AND ($2::bigint IS NULL OR product_id = $2)
  AND ($3::date IS NULL OR sold_on >= $3)
  AND ($4::date IS NULL OR sold_on <= $4)
ORDER BY id`

// $1 fpo, $2 product
const selectInventory = `
SELECT fpo_id, product_id, quantity, as_of
FROM inventory_snapshots
WHERE ($1::bigint IS NULL OR fpo_id = $1)
  AND ($2::bigint IS NULL OR product_id = $2)
ORDER BY as_of, id`

const insertPayment = `
INSERT INTO payments (paid_on, farmer_id, fpo_id, amount, description, idempotency_key)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
RETURNING id`
