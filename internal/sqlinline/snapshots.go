package sqlinline

const QEnsureSponsorSnapshots = `--sql 9c3b7e12-5a4d-4c8e-b1f6-2e7d0a9c4b53
create table if not exists sponsor_snapshots (
    name text primary key,
    payload jsonb not null,
    sponsor_count integer not null default 0,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QSelectSponsorSnapshot = `--sql 5e1a8f40-3b7c-4d92-a6e5-0f4c2d8b7a16
select payload
from sponsor_snapshots
where name = $1::text
limit 1;
`

const QUpsertSponsorSnapshot = `--sql b7d2c6a9-8e14-4f3b-9a05-6c1e3f7d2b48
insert into sponsor_snapshots (name, payload, sponsor_count, created_at, updated_at)
values ($1::text, $2::jsonb, $3::int, now(), now())
on conflict (name) do update set
    payload = excluded.payload,
    sponsor_count = excluded.sponsor_count,
    updated_at = now();
`

const QDeleteSponsorSnapshot = `--sql 1f6d9b3e-7c2a-4e85-b4d0-8a3c5e1f9d72
delete from sponsor_snapshots
where name = $1::text;
`
