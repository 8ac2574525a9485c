package query

// Help returns the user-facing quick reference for the query language.
// Keep it in sync with the parser: every example here must parse.
func Help() string {
	return `Sintaxe de busca / Query syntax:

  campo=valor            filtro exato          severity=critical
  campo!=valor           diferente             type!=login
  campo~valor            contém (substring)    message~"falha de conexão"
  campo>valor campo<val  comparação            severity>=warning
  AND / OR               conectivos            type=login OR type=logout
  texto livre            busca em message      erro no servidor
  "frase com espaços"    frase exata           "timeout ao salvar"

Datas (date: ou data:):
  date:24h  date:7d  date:30m  date:2w     período relativo
  date:hoje | date:today                   desde a meia-noite
  date:ontem | date:yesterday              o dia de ontem
  date:2026-01-01..2026-01-31              intervalo absoluto
  date:15/01/2026                          a partir de uma data

Campos / Fields:
  type|tipo        tipo de evento (login, chamado_criado, erro, ...)
  severity|severidade|status   info, aviso/warning, erro/error, critico/critical
  user|usuario     e-mail do usuário
  origin|origem    subsistema de origem
  message|mensagem texto da mensagem
  entity|entidade|script|chamado   tipo da entidade afetada

Exemplos:
  severity=critical AND type=login date:24h
  usuario=ana@empresa.com chamado=chamado date:ontem
  severidade>=erro origem=api "timeout"`
}
