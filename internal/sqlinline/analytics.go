package sqlinline

// QEnsureAnalyticsSchema creates the analytics tables when missing.
const QEnsureAnalyticsSchema = `--sql 5533903f-68e7-4a4f-9fc4-06980b764a51
create table if not exists generation_events (
  id bigserial primary key,
  outcome text not null check (outcome in ('success', 'failure')),
  duration_ms bigint not null default 0,
  country text not null default '',
  created_at timestamptz not null default now()
);
create table if not exists generation_daily (
  day date primary key,
  attempts integer not null default 0,
  successes integer not null default 0,
  failures integer not null default 0,
  updated_at timestamptz not null default now()
);
`

// QRecordGenerationEvent inserts one event and bumps the day's counters.
// $1 outcome, $2 duration_ms, $3 country, $4 created_at.
const QRecordGenerationEvent = `--sql 687c6810-f949-46e2-bcde-170a52d19168
with ev as (
  insert into generation_events (outcome, duration_ms, country, created_at)
  values ($1, $2, $3, $4)
  returning outcome, created_at
)
insert into generation_daily (day, attempts, successes, failures)
select (ev.created_at at time zone 'utc')::date,
       1,
       case when ev.outcome = 'success' then 1 else 0 end,
       case when ev.outcome = 'failure' then 1 else 0 end
from ev
on conflict (day) do update set
  attempts   = generation_daily.attempts + excluded.attempts,
  successes  = generation_daily.successes + excluded.successes,
  failures   = generation_daily.failures + excluded.failures,
  updated_at = now();
`

// QDailyStats lists the most recent days, newest first. $1 limit.
const QDailyStats = `--sql fc72e632-eaf7-4739-8872-c0d4dd7a331b
select day, attempts, successes, failures
from generation_daily
order by day desc
limit $1;
`

// QTopCountries counts events per country over the last $1 days. $2 limit.
const QTopCountries = `--sql 31a21856-78a1-4775-a202-18b892ec4645
select country, count(*)::int as attempts
from generation_events
where country <> ''
  and created_at >= now() - make_interval(days => $1)
group by country
order by attempts desc, country asc
limit $2;
`
