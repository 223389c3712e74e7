package address

import "github.com/fooddata/fhrs-reconcile/internal/normalize"

// counties lists ceremonial and traditional county names recognised in the
// final address lines. Stored raw; standardised once at init.
var counties = []string{
	"Aberdeenshire", "Angus", "Antrim", "Argyll", "Armagh", "Ayrshire",
	"Bedfordshire", "Berkshire", "Buckinghamshire", "Cambridgeshire",
	"Carmarthenshire", "Ceredigion", "Cheshire", "Clackmannanshire",
	"Cleveland", "Clwyd", "Cornwall", "County Durham", "Cumbria",
	"Denbighshire", "Derbyshire", "Devon", "Dorset", "Down", "Dumfriesshire",
	"Dunbartonshire", "Durham", "Dyfed", "East Lothian", "East Sussex",
	"East Yorkshire", "Essex", "Fermanagh", "Fife", "Flintshire",
	"Glamorgan", "Gloucestershire", "Greater London", "Greater Manchester",
	"Gwent", "Gwynedd", "Hampshire", "Herefordshire", "Hertfordshire",
	"Inverness-shire", "Isle of Wight", "Kent", "Lanarkshire", "Lancashire",
	"Leicestershire", "Lincolnshire", "London", "Londonderry", "Merseyside",
	"Middlesex", "Midlothian", "Monmouthshire", "Morayshire", "Norfolk",
	"North Humberside", "North Yorkshire", "Northamptonshire",
	"Northumberland", "Nottinghamshire", "Oxfordshire", "Pembrokeshire",
	"Perthshire", "Powys", "Renfrewshire", "Ross-shire", "Rutland",
	"Shropshire", "Somerset", "South Humberside", "South Yorkshire",
	"Staffordshire", "Stirlingshire", "Suffolk", "Surrey", "Sutherland",
	"Tyne and Wear", "Tyrone", "Warwickshire", "West Lothian",
	"West Midlands", "West Sussex", "West Yorkshire", "Wiltshire",
	"Worcestershire",
}

// postTownsByArea maps a postcode area to the post towns it serves.
// Post towns are tagged addr:city whether or not they are cities.
var postTownsByArea = map[string][]string{
	"AB": {"Aberdeen", "Westhill", "Inverurie"},
	"B":  {"Birmingham", "Solihull", "Sutton Coldfield", "Halesowen"},
	"BA": {"Bath", "Frome", "Wells", "Glastonbury", "Yeovil"},
	"BB": {"Blackburn", "Burnley", "Accrington", "Nelson", "Clitheroe"},
	"BD": {"Bradford", "Keighley", "Shipley", "Skipton"},
	"BN": {"Brighton", "Hove", "Eastbourne", "Lewes", "Worthing"},
	"BR": {"Bromley", "Beckenham", "Orpington", "Chislehurst"},
	"BS": {"Bristol", "Weston-super-Mare", "Clevedon"},
	"BT": {"Belfast", "Lisburn", "Newtownabbey", "Bangor"},
	"CA": {"Carlisle", "Penrith", "Workington", "Whitehaven", "Keswick"},
	"CB": {"Cambridge", "Ely", "Haverhill", "Saffron Walden"},
	"CF": {"Cardiff", "Barry", "Bridgend", "Pontypridd", "Caerphilly"},
	"CH": {"Chester", "Birkenhead", "Ellesmere Port", "Wallasey"},
	"CM": {"Chelmsford", "Braintree", "Brentwood", "Witham"},
	"CO": {"Colchester", "Clacton-on-Sea", "Harwich", "Halstead"},
	"CR": {"Croydon", "Mitcham", "Thornton Heath", "Purley"},
	"CT": {"Canterbury", "Dover", "Folkestone", "Margate", "Ramsgate"},
	"CV": {"Coventry", "Rugby", "Nuneaton", "Kenilworth", "Warwick"},
	"CW": {"Crewe", "Nantwich", "Northwich", "Sandbach", "Winsford"},
	"DA": {"Dartford", "Bexleyheath", "Erith", "Sidcup", "Gravesend"},
	"DD": {"Dundee", "Arbroath", "Forfar", "Brechin", "Montrose"},
	"DE": {"Derby", "Ilkeston", "Ripley", "Matlock", "Ashbourne"},
	"DG": {"Dumfries", "Annan", "Castle Douglas", "Stranraer"},
	"DH": {"Durham", "Chester-le-Street", "Consett", "Stanley"},
	"DL": {"Darlington", "Northallerton", "Richmond", "Bishop Auckland"},
	"DN": {"Doncaster", "Scunthorpe", "Grimsby", "Goole"},
	"DT": {"Dorchester", "Weymouth", "Bridport", "Sherborne"},
	"DY": {"Dudley", "Stourbridge", "Kidderminster", "Brierley Hill"},
	"E":  {"London"},
	"EC": {"London"},
	"EH": {"Edinburgh", "Musselburgh", "Dalkeith", "Penicuik", "Livingston"},
	"EN": {"Enfield", "Barnet", "Potters Bar", "Waltham Cross"},
	"EX": {"Exeter", "Exmouth", "Barnstaple", "Tiverton", "Okehampton"},
	"FK": {"Falkirk", "Stirling", "Grangemouth", "Alloa", "Larbert"},
	"FY": {"Blackpool", "Lytham St Annes", "Thornton-Cleveleys"},
	"G":  {"Glasgow", "Clydebank", "Dumbarton"},
	"GL": {"Gloucester", "Cheltenham", "Stroud", "Cirencester", "Tewkesbury"},
	"GU": {"Guildford", "Woking", "Aldershot", "Farnham", "Camberley"},
	"HA": {"Harrow", "Wembley", "Pinner", "Ruislip", "Edgware", "Stanmore"},
	"HD": {"Huddersfield", "Brighouse", "Holmfirth"},
	"HG": {"Harrogate", "Knaresborough", "Ripon"},
	"HP": {"Hemel Hempstead", "High Wycombe", "Aylesbury", "Tring"},
	"HR": {"Hereford", "Leominster", "Ross-on-Wye", "Ledbury"},
	"HU": {"Hull", "Beverley", "Brough", "Hessle"},
	"HX": {"Halifax", "Elland", "Sowerby Bridge", "Hebden Bridge"},
	"IG": {"Ilford", "Barking", "Loughton", "Woodford Green", "Chigwell"},
	"IP": {"Ipswich", "Felixstowe", "Stowmarket", "Woodbridge", "Eye"},
	"IV": {"Inverness", "Dingwall", "Nairn", "Tain", "Ullapool"},
	"KA": {"Kilmarnock", "Ayr", "Irvine", "Ardrossan", "Troon"},
	"KT": {"Kingston upon Thames", "Surbiton", "Epsom", "Leatherhead", "Esher"},
	"KY": {"Kirkcaldy", "Dunfermline", "Glenrothes", "St Andrews"},
	"L":  {"Liverpool", "Bootle", "Prescot", "Ormskirk"},
	"LA": {"Lancaster", "Morecambe", "Kendal", "Barrow-in-Furness"},
	"LD": {"Llandrindod Wells", "Brecon", "Builth Wells"},
	"LE": {"Leicester", "Loughborough", "Hinckley", "Melton Mowbray", "Oakham"},
	"LL": {"Llandudno", "Bangor", "Wrexham", "Colwyn Bay", "Rhyl"},
	"LN": {"Lincoln", "Market Rasen", "Woodhall Spa", "Alford"},
	"LS": {"Leeds", "Otley", "Pudsey", "Wetherby", "Ilkley", "Tadcaster"},
	"LU": {"Luton", "Dunstable", "Leighton Buzzard"},
	"M":  {"Manchester", "Salford", "Sale", "Stretford"},
	"ME": {"Rochester", "Chatham", "Gillingham", "Maidstone", "Sittingbourne"},
	"MK": {"Milton Keynes", "Bedford", "Newport Pagnell", "Buckingham", "Olney"},
	"ML": {"Motherwell", "Hamilton", "Wishaw", "Lanark", "Airdrie"},
	"N":  {"London"},
	"NE": {"Newcastle upon Tyne", "Gateshead", "Sunderland", "Hexham", "Morpeth"},
	"NG": {"Nottingham", "Mansfield", "Newark", "Grantham"},
	"NN": {"Northampton", "Kettering", "Wellingborough", "Corby", "Daventry"},
	"NP": {"Newport", "Cwmbran", "Abergavenny", "Monmouth", "Chepstow"},
	"NR": {"Norwich", "Great Yarmouth", "Dereham", "Cromer", "Wymondham"},
	"NW": {"London"},
	"OL": {"Oldham", "Rochdale", "Ashton-under-Lyne", "Littleborough", "Bacup"},
	"OX": {"Oxford", "Banbury", "Bicester", "Witney", "Abingdon", "Didcot"},
	"PA": {"Paisley", "Renfrew", "Johnstone", "Greenock", "Oban"},
	"PE": {"Peterborough", "Huntingdon", "Wisbech", "Spalding", "Boston", "King's Lynn"},
	"PH": {"Perth", "Pitlochry", "Aviemore", "Crieff"},
	"PL": {"Plymouth", "Bodmin", "Liskeard", "Tavistock", "Launceston"},
	"PO": {"Portsmouth", "Southsea", "Gosport", "Fareham", "Havant", "Chichester", "Newport"},
	"PR": {"Preston", "Chorley", "Leyland", "Southport"},
	"RG": {"Reading", "Basingstoke", "Newbury", "Bracknell", "Wokingham", "Thatcham"},
	"RH": {"Redhill", "Reigate", "Crawley", "Horsham", "East Grinstead"},
	"RM": {"Romford", "Hornchurch", "Upminster", "Dagenham", "Rainham", "Grays"},
	"S":  {"Sheffield", "Rotherham", "Barnsley", "Chesterfield", "Worksop"},
	"SA": {"Swansea", "Llanelli", "Neath", "Port Talbot", "Carmarthen", "Haverfordwest"},
	"SE": {"London"},
	"SG": {"Stevenage", "Hitchin", "Letchworth Garden City", "Royston", "Baldock"},
	"SK": {"Stockport", "Macclesfield", "Cheadle", "Glossop", "Buxton"},
	"SL": {"Slough", "Windsor", "Maidenhead", "Gerrards Cross", "Ascot"},
	"SM": {"Sutton", "Carshalton", "Morden", "Wallington", "Banstead"},
	"SN": {"Swindon", "Chippenham", "Calne", "Devizes", "Marlborough", "Malmesbury"},
	"SO": {"Southampton", "Eastleigh", "Winchester", "Romsey", "Lyndhurst"},
	"SP": {"Salisbury", "Andover", "Shaftesbury", "Fordingbridge"},
	"SR": {"Sunderland", "Seaham", "Peterlee", "Houghton le Spring"},
	"SS": {"Southend-on-Sea", "Basildon", "Rayleigh", "Rochford", "Canvey Island"},
	"ST": {"Stoke-on-Trent", "Stafford", "Newcastle-under-Lyme", "Leek", "Stone"},
	"SW": {"London"},
	"SY": {"Shrewsbury", "Oswestry", "Welshpool", "Newtown", "Ludlow"},
	"TA": {"Taunton", "Bridgwater", "Minehead", "Wellington", "Chard"},
	"TD": {"Galashiels", "Melrose", "Selkirk", "Hawick", "Kelso", "Berwick-upon-Tweed"},
	"TF": {"Telford", "Market Drayton", "Much Wenlock", "Broseley"},
	"TN": {"Tonbridge", "Tunbridge Wells", "Sevenoaks", "Ashford", "Hastings"},
	"TQ": {"Torquay", "Paignton", "Newton Abbot", "Totnes", "Brixham"},
	"TR": {"Truro", "Falmouth", "Penzance", "Redruth", "St Ives", "Helston"},
	"TS": {"Middlesbrough", "Stockton-on-Tees", "Hartlepool", "Redcar", "Yarm"},
	"TW": {"Twickenham", "Richmond", "Hounslow", "Feltham", "Staines-upon-Thames"},
	"UB": {"Southall", "Hayes", "Uxbridge", "Greenford", "Northolt", "West Drayton"},
	"W":  {"London"},
	"WA": {"Warrington", "Runcorn", "Widnes", "Frodsham", "Knutsford", "Lymm"},
	"WC": {"London"},
	"WD": {"Watford", "Rickmansworth", "Borehamwood", "Bushey", "Abbots Langley"},
	"WF": {"Wakefield", "Pontefract", "Castleford", "Dewsbury", "Ossett"},
	"WN": {"Wigan", "Skelmersdale", "Leigh"},
	"WR": {"Worcester", "Malvern", "Evesham", "Droitwich", "Pershore"},
	"WS": {"Walsall", "Cannock", "Lichfield", "Burntwood", "Aldridge"},
	"WV": {"Wolverhampton", "Bilston", "Willenhall", "Bridgnorth"},
	"YO": {"York", "Scarborough", "Bridlington", "Malton", "Selby", "Filey"},
	"ZE": {"Shetland"},
}

var (
	countySet          map[string]bool
	postTownsStdByArea map[string]map[string]bool
	allPostTowns       map[string]bool
)

func init() {
	countySet = make(map[string]bool, len(counties))
	for _, c := range counties {
		countySet[normalize.Place(c)] = true
	}

	postTownsStdByArea = make(map[string]map[string]bool, len(postTownsByArea))
	allPostTowns = make(map[string]bool)
	for area, towns := range postTownsByArea {
		std := make(map[string]bool, len(towns))
		for _, town := range towns {
			s := normalize.Place(town)
			std[s] = true
			allPostTowns[s] = true
		}
		postTownsStdByArea[area] = std
	}
}

func isCounty(s string) bool {
	return countySet[normalize.Place(s)]
}

// isPostTown checks a string against the post-town list, narrowed to the
// establishment's postcode area when known.
func isPostTown(s, postcodeArea string) bool {
	std := normalize.Place(s)
	if towns, ok := postTownsStdByArea[postcodeArea]; ok {
		return towns[std]
	}
	return allPostTowns[std]
}
